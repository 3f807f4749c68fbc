package pipeline

import (
	"fmt"
	"strings"
)

// Phase tags where a section-scoped failure happened.
type Phase string

const (
	PhaseDirectiveParse Phase = "directive_parse"
	PhaseManagerRun     Phase = "manager_run"
	PhaseOutputWrite    Phase = "output_write"
)

// TemplateError is a section-scoped failure. It is reported as a warning and
// never aborts the remaining sections.
type TemplateError struct {
	Section string
	// Pointer locates the failure for a template author, e.g.
	// "## Summary (@cache directive)".
	Pointer string
	Phase   Phase
	Err     error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Pointer, e.Phase, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

func newTemplateError(section, directive string, phase Phase, err error) *TemplateError {
	pointer := "## " + section
	if directive != "" {
		pointer += fmt.Sprintf(" (@%s directive)", directive)
	}
	return &TemplateError{Section: section, Pointer: pointer, Phase: phase, Err: err}
}

// warningText renders warnings as one message.
func warningText(warnings []*TemplateError) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("> **Template warning:** some sections could not run.\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "> - %s: %v\n", w.Pointer, w.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}
