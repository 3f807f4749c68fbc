package pipeline

import (
	"sync"
	"time"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pattern"
)

// Cache miss reasons.
const (
	MissMissing         = "missing"
	MissExpired         = "expired"
	MissTemplateChanged = "template_changed"
)

// CheckEntry reports whether entry may be reused for a template with hash
// templateHash under policy at time now. On a miss it returns the reason.
func CheckEntry(entry *models.CacheEntry, templateHash string, policy directive.CachePolicy, now time.Time, weekStart time.Weekday) (bool, string) {
	if entry == nil {
		return false, MissMissing
	}
	if entry.TemplateHash != templateHash {
		return false, MissTemplateChanged
	}
	loc := now.Location()
	switch policy.Mode {
	case directive.CacheSession:
		return true, ""
	case directive.CacheDaily:
		if pattern.SameDay(entry.CreatedAt, now, loc) {
			return true, ""
		}
	case directive.CacheWeekly:
		if pattern.SameWeek(entry.CreatedAt, now, weekStart, loc) {
			return true, ""
		}
	case directive.CacheDuration:
		if now.Sub(entry.CreatedAt) < policy.TTL {
			return true, ""
		}
	}
	return false, MissExpired
}

// runCache holds section outputs per invocation ID so a section is not
// recomputed twice within one logical call.
type runCache struct {
	mu      sync.Mutex
	entries map[string]map[models.CacheKey]string
}

func newRunCache() *runCache {
	return &runCache{entries: make(map[string]map[models.CacheKey]string)}
}

func (c *runCache) get(id string, key models.CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.entries[id][key]
	return out, ok
}

func (c *runCache) put(id string, key models.CacheKey, out string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[id]
	if !ok {
		m = make(map[models.CacheKey]string)
		c.entries[id] = m
	}
	m[key] = out
}

func (c *runCache) release(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
