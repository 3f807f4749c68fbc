// Package templates loads workflow and context templates from the vault or
// the system-wide template directory.
package templates

import (
	"time"

	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/pattern"
)

// Tier is where a template was found.
type Tier string

const (
	TierVault  Tier = "vault"
	TierSystem Tier = "system"
)

// Reserved section names. They configure the template instead of executing.
const (
	SectionInstructions        = "Instructions"
	SectionContextInstructions = "Context Instructions"
)

// Template is one loaded template. It is immutable once returned.
type Template struct {
	Name string
	Tier Tier
	// Path is the absolute file path the template was read from.
	Path    string
	Content []byte
	Hash    string
	ModTime time.Time

	Frontmatter map[string]any
	// Sections are the executable sections in document order.
	Sections []parser.Section
	// Instructions is the content of the "Instructions" section.
	Instructions string
	// ContextInstructions is the content of the "Context Instructions" section.
	ContextInstructions string
}

// Enabled reports the frontmatter "enabled" flag, true when absent.
func (t *Template) Enabled() bool {
	v, ok := parser.FrontmatterBool(t.Frontmatter, "enabled")
	return !ok || v
}

// WeekStart returns the frontmatter "week_start" day, or def.
func (t *Template) WeekStart(def time.Weekday) time.Weekday {
	s := parser.FrontmatterString(t.Frontmatter, "week_start")
	if s == "" {
		return def
	}
	d, err := pattern.ParseWeekday(s)
	if err != nil {
		return def
	}
	return d
}

// DefaultModel returns the frontmatter "default_model", or def.
func (t *Template) DefaultModel(def string) string {
	if s := parser.FrontmatterString(t.Frontmatter, "default_model"); s != "" {
		return s
	}
	return def
}
