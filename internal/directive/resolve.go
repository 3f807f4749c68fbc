package directive

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/tools"
)

// DirectiveError ties a failure to the directive that produced it.
type DirectiveError struct {
	Name string
	Err  error
}

func (e *DirectiveError) Error() string { return e.Err.Error() }

func (e *DirectiveError) Unwrap() error { return e.Err }

// SectionResolution is every directive of one section, resolved.
type SectionResolution struct {
	Section parser.Section
	// Results maps a directive name to one Result per value, in document order.
	Results map[string][]Result
	// Errors lists validation and processing failures.
	Errors []*DirectiveError
	// Skip is the first skip signal raised; later directives are not applied.
	Skip *SkipSignal
}

// Failed reports whether any directive of the section failed.
func (s *SectionResolution) Failed() bool { return len(s.Errors) > 0 }

// ResolveSection processes the section's directives in document order.
func ResolveSection(ctx context.Context, reg *Registry, sec parser.Section, scope *Scope) *SectionResolution {
	res := &SectionResolution{Section: sec, Results: make(map[string][]Result)}
	for _, d := range sec.Sequence {
		r, err := reg.Process(ctx, d.Name, d.Value, scope)
		if err != nil {
			res.Errors = append(res.Errors, &DirectiveError{Name: d.Name, Err: err})
			continue
		}
		res.Results[d.Name] = append(res.Results[d.Name], r)
		if r.Err != nil {
			res.Errors = append(res.Errors, &DirectiveError{Name: d.Name, Err: r.Err})
			continue
		}
		if r.Skip != nil {
			res.Skip = r.Skip
			break
		}
	}
	return res
}

// Resolution is a whole document with per-section directive results.
type Resolution struct {
	Document *parser.Document
	Sections []*SectionResolution
}

// BySection maps section names to their directive results.
func (r *Resolution) BySection() map[string]map[string][]Result {
	out := make(map[string]map[string][]Result, len(r.Sections))
	for _, s := range r.Sections {
		out[s.Section.Name] = s.Results
	}
	return out
}

// Resolve parses document text and resolves every section's directives.
// It does not write file state or cache entries.
func Resolve(ctx context.Context, reg *Registry, text []byte, scope *Scope) (*Resolution, error) {
	doc, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("directive: parse document: %w", err)
	}
	scope = scope.forDocument(doc)
	out := &Resolution{Document: doc}
	for _, sec := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Sections = append(out.Sections, ResolveSection(ctx, reg, sec, scope))
	}
	return out, nil
}

func (s *SectionResolution) first(name string) (any, bool) {
	for _, r := range s.Results[name] {
		if r.Success {
			return r.Value, true
		}
	}
	return nil, false
}

// Inputs returns every successfully resolved @input.
func (s *SectionResolution) Inputs() []Input {
	var out []Input
	for _, r := range s.Results[NameInput] {
		if in, ok := r.Value.(Input); ok && r.Success {
			out = append(out, in)
		}
	}
	return out
}

// Output returns the first @output target.
func (s *SectionResolution) Output() (output.Target, bool) {
	v, ok := s.first(NameOutput)
	t, tok := v.(output.Target)
	return t, ok && tok
}

// Header returns the resolved @header.
func (s *SectionResolution) Header() (string, bool) {
	v, ok := s.first(NameHeader)
	h, hok := v.(string)
	return h, ok && hok
}

// WriteMode returns @write-mode, defaulting to append.
func (s *SectionResolution) WriteMode() output.Mode {
	if v, ok := s.first(NameWriteMode); ok {
		if m, ok := v.(output.Mode); ok {
			return m
		}
	}
	return output.ModeAppend
}

// Cache returns the @cache policy when declared.
func (s *SectionResolution) Cache() (CachePolicy, bool) {
	v, ok := s.first(NameCache)
	p, pok := v.(CachePolicy)
	return p, ok && pok
}

// Model returns the @model choice when declared.
func (s *SectionResolution) Model() (ModelChoice, bool) {
	v, ok := s.first(NameModel)
	m, mok := v.(ModelChoice)
	return m, ok && mok
}

// Tools returns every tool handle declared by @tools.
func (s *SectionResolution) Tools() []tools.Handle {
	var out []tools.Handle
	for _, r := range s.Results[NameTools] {
		if hs, ok := r.Value.([]tools.Handle); ok && r.Success {
			out = append(out, hs...)
		}
	}
	return out
}

// Int returns an integer directive such as @recent-runs.
func (s *SectionResolution) Int(name string) (int, bool) {
	v, ok := s.first(name)
	n, nok := v.(int)
	return n, ok && nok
}

// IsValueError reports whether err is a validate-time rejection.
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}
