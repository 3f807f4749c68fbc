// Package pattern resolves path patterns used by directives: date-relative
// tokens, single-directory globs, {latest:N} and stateful {pending:N}.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tokenRe = regexp.MustCompile(`\{([a-z][a-z-]*)(?::([^{}]*))?\}`)

// Env is the reference frame for date-relative tokens.
type Env struct {
	Now       time.Time
	WeekStart time.Weekday
}

type dateToken struct {
	format string
	at     func(env Env) time.Time
}

var dateTokens = map[string]dateToken{
	"today":      {"YYYY-MM-DD", func(e Env) time.Time { return e.Now }},
	"yesterday":  {"YYYY-MM-DD", func(e Env) time.Time { return e.Now.AddDate(0, 0, -1) }},
	"tomorrow":   {"YYYY-MM-DD", func(e Env) time.Time { return e.Now.AddDate(0, 0, 1) }},
	"this-week":  {"YYYY-MM-DD", func(e Env) time.Time { return WeekStartOf(e.Now, e.WeekStart) }},
	"last-week":  {"YYYY-MM-DD", func(e Env) time.Time { return WeekStartOf(e.Now, e.WeekStart).AddDate(0, 0, -7) }},
	"next-week":  {"YYYY-MM-DD", func(e Env) time.Time { return WeekStartOf(e.Now, e.WeekStart).AddDate(0, 0, 7) }},
	"this-month": {"YYYY-MM", func(e Env) time.Time { return monthStart(e.Now, 0) }},
	"last-month": {"YYYY-MM", func(e Env) time.Time { return monthStart(e.Now, -1) }},
	"next-month": {"YYYY-MM", func(e Env) time.Time { return monthStart(e.Now, 1) }},
	"this-year":  {"YYYY", func(e Env) time.Time { return e.Now }},
	"last-year":  {"YYYY", func(e Env) time.Time { return e.Now.AddDate(-1, 0, 0) }},
	"day-name":   {"dddd", func(e Env) time.Time { return e.Now }},
	"month-name": {"MMMM", func(e Env) time.Time { return e.Now }},
}

// IsDateToken reports whether name is a known date-relative token.
func IsDateToken(name string) bool {
	_, ok := dateTokens[name]
	return ok
}

// ResolveDates substitutes every date token in s. Other {tokens} are left as is.
func ResolveDates(s string, env Env) string {
	return tokenRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := tokenRe.FindStringSubmatch(m)
		tok, ok := dateTokens[sub[1]]
		if !ok {
			return m
		}
		format := tok.format
		if sub[2] != "" {
			format = sub[2]
		}
		return FormatDate(tok.at(env), format)
	})
}

// WeekStartOf returns midnight of the week containing t, weeks beginning on ws.
func WeekStartOf(t time.Time, ws time.Weekday) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) - int(ws) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SameWeek reports whether a and b fall in the same ws-aligned week in loc.
func SameWeek(a, b time.Time, ws time.Weekday, loc *time.Location) bool {
	return WeekStartOf(a.In(loc), ws).Equal(WeekStartOf(b.In(loc), ws))
}

func monthStart(t time.Time, delta int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(delta), 1, 0, 0, 0, 0, t.Location())
}

// formatTokens are tried longest-first at every position.
var formatTokens = []struct {
	tok    string
	render func(t time.Time) string
}{
	{"YYYY", func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"YY", func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	{"MMMM", func(t time.Time) string { return t.Month().String() }},
	{"MMM", func(t time.Time) string { return t.Month().String()[:3] }},
	{"MM", func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	{"M", func(t time.Time) string { return fmt.Sprintf("%d", int(t.Month())) }},
	{"DD", func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	{"D", func(t time.Time) string { return fmt.Sprintf("%d", t.Day()) }},
	{"dddd", func(t time.Time) string { return t.Weekday().String() }},
	{"ddd", func(t time.Time) string { return t.Weekday().String()[:3] }},
	{"HH", func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) }},
	{"mm", func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) }},
	{"ss", func(t time.Time) string { return fmt.Sprintf("%02d", t.Second()) }},
}

// FormatDate renders t using YYYY/MM/DD-style tokens. Characters that are not
// tokens are copied verbatim.
func FormatDate(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, ft := range formatTokens {
			if strings.HasPrefix(format[i:], ft.tok) {
				b.WriteString(ft.render(t))
				i += len(ft.tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("pattern: unknown weekday %q", s)
}
