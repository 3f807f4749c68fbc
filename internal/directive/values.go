package directive

import (
	"time"

	"github.com/starford/quire/internal/pattern"
)

// Directive names handled by the built-in processors.
const (
	NameInput           = "input"
	NameOutput          = "output"
	NameHeader          = "header"
	NameWriteMode       = "write-mode"
	NameCache           = "cache"
	NameModel           = "model"
	NameTools           = "tools"
	NameRunOn           = "run-on"
	NameRecentRuns      = "recent-runs"
	NameRecentSummaries = "recent-summaries"
	NameTokenThreshold  = "token-threshold"
)

// Input source kinds.
const (
	SourceFile   = "file"
	SourceBuffer = "buffer"
)

// Input is the resolved value of one @input directive.
type Input struct {
	Source   string
	Target   string
	Required bool
	// Selection is set for file sources.
	Selection *pattern.Selection
	// Buffer holds the named buffer content for buffer sources.
	Buffer string
}

// Cache modes.
const (
	CacheDuration = "duration"
	CacheDaily    = "daily"
	CacheWeekly   = "weekly"
	CacheSession  = "session"
)

// CachePolicy is the resolved value of @cache.
type CachePolicy struct {
	Mode string
	TTL  time.Duration // set for CacheDuration only
}

// ModelChoice is the resolved value of @model.
type ModelChoice struct {
	Name string
	None bool
}

// Schedule is the resolved value of @run-on.
type Schedule struct {
	Days [7]bool // indexed by time.Weekday
}

// Matches reports whether the schedule includes t's weekday.
func (s Schedule) Matches(t time.Time) bool {
	return s.Days[t.Weekday()]
}
