package pattern

import (
	"testing"
	"time"
)

// Wednesday.
var refDate = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func TestResolveDates(t *testing.T) {
	env := Env{Now: refDate, WeekStart: time.Monday}
	cases := []struct {
		in, want string
	}{
		{"journal/{today}", "journal/2026-10-14"},
		{"journal/{yesterday}", "journal/2026-10-13"},
		{"journal/{tomorrow}", "journal/2026-10-15"},
		{"weekly/{this-week}", "weekly/2026-10-12"},
		{"weekly/{last-week}", "weekly/2026-10-05"},
		{"weekly/{next-week}", "weekly/2026-10-19"},
		{"monthly/{this-month}", "monthly/2026-10"},
		{"monthly/{last-month}", "monthly/2026-09"},
		{"monthly/{next-month}", "monthly/2026-11"},
		{"{this-year}", "2026"},
		{"{last-year}", "2025"},
		{"{day-name}", "Wednesday"},
		{"{month-name}", "October"},
		{"{today:YYYYMMDD}", "20261014"},
		{"{today:ddd D MMM YY}", "Wed 14 Oct 26"},
		{"{today:YYYY-MM-DD HH:mm}", "2026-10-14 09:30"},
		{"files/{pending:5}", "files/{pending:5}"},
		{"{unknown}", "{unknown}"},
	}
	for _, tc := range cases {
		if got := ResolveDates(tc.in, env); got != tc.want {
			t.Errorf("ResolveDates(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveDates_WeekStartSunday(t *testing.T) {
	env := Env{Now: refDate, WeekStart: time.Sunday}
	if got := ResolveDates("{this-week}", env); got != "2026-10-11" {
		t.Errorf("this-week = %q, want 2026-10-11", got)
	}
}

func TestLastMonth_JanuaryWraps(t *testing.T) {
	env := Env{Now: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)}
	if got := ResolveDates("{last-month}", env); got != "2025-12" {
		t.Errorf("last-month = %q, want 2025-12", got)
	}
}

func TestFormatDate_LiteralDigitsKept(t *testing.T) {
	if got := FormatDate(refDate, "Q1-YYYY"); got != "Q1-2026" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestWeekStartOf_OnStartDay(t *testing.T) {
	monday := time.Date(2026, 10, 12, 23, 0, 0, 0, time.UTC)
	got := WeekStartOf(monday, time.Monday)
	if !got.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WeekStartOf = %v", got)
	}
}

func TestSameDayAndWeek(t *testing.T) {
	a := time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC)
	if !SameDay(a, a.Add(20*time.Hour), time.UTC) {
		t.Error("expected same day")
	}
	if SameDay(a, a.Add(25*time.Hour), time.UTC) {
		t.Error("expected different day")
	}
	sunday := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	if !SameWeek(a, sunday, time.Monday, time.UTC) {
		t.Error("Wednesday and Sunday share a Monday-aligned week")
	}
	if SameWeek(a, sunday, time.Sunday, time.UTC) {
		t.Error("Wednesday and next Sunday differ in a Sunday-aligned week")
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{"Monday": time.Monday, "sun": time.Sunday, " FRI ": time.Friday} {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Errorf("ParseWeekday(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}
