package pipeline

import (
	"testing"
	"time"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/models"
)

func TestCheckEntry(t *testing.T) {
	created := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) // Wednesday
	entry := &models.CacheEntry{TemplateHash: "h1", CreatedAt: created}

	daily := directive.CachePolicy{Mode: directive.CacheDaily}
	weekly := directive.CachePolicy{Mode: directive.CacheWeekly}
	session := directive.CachePolicy{Mode: directive.CacheSession}
	twoHours := directive.CachePolicy{Mode: directive.CacheDuration, TTL: 2 * time.Hour}

	cases := []struct {
		name   string
		entry  *models.CacheEntry
		hash   string
		policy directive.CachePolicy
		now    time.Time
		ok     bool
		reason string
	}{
		{"missing", nil, "h1", daily, created, false, MissMissing},
		{"daily same day", entry, "h1", daily, created.Add(time.Hour), true, ""},
		{"daily next day", entry, "h1", daily, created.Add(25 * time.Hour), false, MissExpired},
		{"weekly same week", entry, "h1", weekly, created.Add(4 * 24 * time.Hour), true, ""},
		{"weekly next week", entry, "h1", weekly, created.Add(5 * 24 * time.Hour), false, MissExpired},
		{"session forever", entry, "h1", session, created.Add(365 * 24 * time.Hour), true, ""},
		{"duration inside", entry, "h1", twoHours, created.Add(119 * time.Minute), true, ""},
		{"duration boundary", entry, "h1", twoHours, created.Add(2 * time.Hour), false, MissExpired},
		{"template changed daily", entry, "h2", daily, created, false, MissTemplateChanged},
		{"template changed session", entry, "h2", session, created, false, MissTemplateChanged},
		{"template changed duration", entry, "h2", twoHours, created, false, MissTemplateChanged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CheckEntry(tc.entry, tc.hash, tc.policy, tc.now, time.Monday)
			if ok != tc.ok || reason != tc.reason {
				t.Errorf("CheckEntry = %v %q, want %v %q", ok, reason, tc.ok, tc.reason)
			}
		})
	}
}

func TestRunCache(t *testing.T) {
	c := newRunCache()
	k := models.CacheKey{SessionID: "s", SectionKey: "0:A"}
	c.put("inv-1", k, "out")
	if got, ok := c.get("inv-1", k); !ok || got != "out" {
		t.Errorf("get = %q %v", got, ok)
	}
	if _, ok := c.get("inv-2", k); ok {
		t.Error("run cache leaked across invocations")
	}
	c.release("inv-1")
	if _, ok := c.get("inv-1", k); ok {
		t.Error("released invocation still cached")
	}
}
