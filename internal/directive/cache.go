package directive

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayDurationRe = regexp.MustCompile(`^(\d+)\s*(d|days?|w|weeks?)$`)

type cacheProcessor struct{}

func (cacheProcessor) Name() string { return NameCache }

func (cacheProcessor) Validate(v string) bool {
	_, err := ParseCachePolicy(v)
	return err == nil
}

func (cacheProcessor) Apply(_ context.Context, v string, _ *Scope) (any, error) {
	return ParseCachePolicy(v)
}

// ParseCachePolicy parses "daily", "weekly", "session", or a duration such as
// "2h", "90m", "3d", optionally prefixed with "duration".
func ParseCachePolicy(v string) (CachePolicy, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case CacheDaily, CacheWeekly, CacheSession:
		return CachePolicy{Mode: s}, nil
	case "":
		return CachePolicy{}, fmt.Errorf("cache mode is required")
	}

	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, CacheDuration), ":"))
	ttl, err := parseTTL(s)
	if err != nil {
		return CachePolicy{}, err
	}
	if ttl <= 0 {
		return CachePolicy{}, fmt.Errorf("cache duration must be positive: %q", v)
	}
	return CachePolicy{Mode: CacheDuration, TTL: ttl}, nil
}

func parseTTL(s string) (time.Duration, error) {
	if m := dayDurationRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		day := 24 * time.Hour
		if strings.HasPrefix(m[2], "w") {
			day *= 7
		}
		return time.Duration(n) * day, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("unknown cache mode %q", s)
	}
	return d, nil
}
