package directive

import (
	"strings"
	"time"

	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/pattern"
	"github.com/starford/quire/internal/tools"
)

// Scope is the per-invocation context handed to processors.
type Scope struct {
	Resolver *pattern.Resolver
	// Buffers holds named outputs of earlier sections or runs.
	Buffers output.Buffers
	Tools   *tools.Catalog
}

// Env returns the date reference frame.
func (s *Scope) Env() pattern.Env {
	if s == nil || s.Resolver == nil {
		return pattern.Env{Now: time.Now()}
	}
	return s.Resolver.Env
}

// forDocument returns s with the document's frontmatter week_start applied.
// s itself is not modified.
func (s *Scope) forDocument(doc *parser.Document) *Scope {
	if s == nil || s.Resolver == nil {
		return s
	}
	v := strings.TrimSpace(parser.FrontmatterString(doc.Frontmatter, "week_start"))
	if v == "" {
		return s
	}
	d, err := pattern.ParseWeekday(v)
	if err != nil {
		return s
	}
	res := *s.Resolver
	res.Env.WeekStart = d
	cp := *s
	cp.Resolver = &res
	return &cp
}
