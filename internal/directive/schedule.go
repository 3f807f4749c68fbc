package directive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quire/internal/pattern"
)

type runOnProcessor struct{}

func (runOnProcessor) Name() string { return NameRunOn }

func (runOnProcessor) Validate(v string) bool {
	_, err := ParseSchedule(v)
	return err == nil
}

// Apply skips the section when the reference date is not scheduled.
func (runOnProcessor) Apply(_ context.Context, v string, scope *Scope) (any, error) {
	s, err := ParseSchedule(v)
	if err != nil {
		return nil, err
	}
	now := scope.Env().Now
	if !s.Matches(now) {
		return nil, Skip("not scheduled on %s", now.Weekday())
	}
	return s, nil
}

// ParseSchedule accepts daily, weekdays, weekends, never, or a list of days.
func ParseSchedule(v string) (Schedule, error) {
	var s Schedule
	items := splitList(strings.ToLower(v))
	if len(items) == 0 {
		return s, fmt.Errorf("run-on: empty schedule")
	}
	for _, item := range items {
		switch item {
		case "daily", "everyday", "always":
			for i := range s.Days {
				s.Days[i] = true
			}
		case "weekdays":
			for d := time.Monday; d <= time.Friday; d++ {
				s.Days[d] = true
			}
		case "weekends":
			s.Days[time.Saturday] = true
			s.Days[time.Sunday] = true
		case "never":
		default:
			d, err := pattern.ParseWeekday(item)
			if err != nil {
				return s, fmt.Errorf("run-on: %w", err)
			}
			s.Days[d] = true
		}
	}
	return s, nil
}
