// Package directive maps @directive names to processors that validate and
// resolve their values into structured configuration.
package directive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/starford/quire/internal/apperr"
)

// Processor validates and applies one directive kind.
type Processor interface {
	Name() string
	// Validate is a side-effect free syntax check of the raw value.
	Validate(value string) bool
	// Apply resolves the value. It may return a *SkipSignal.
	Apply(ctx context.Context, value string, scope *Scope) (any, error)
}

// Result is the outcome of processing one directive value.
type Result struct {
	Name    string
	Raw     string
	Success bool
	Value   any
	// Skip is set when the directive declared its section un-runnable.
	Skip *SkipSignal
	Err  error
}

// SkipSignal is a control signal, not an error: the section cannot run.
type SkipSignal struct {
	Reason string
}

func (s *SkipSignal) Error() string { return "skip: " + s.Reason }

// Skip returns a SkipSignal error value.
func Skip(format string, args ...any) error {
	return &SkipSignal{Reason: fmt.Sprintf(format, args...)}
}

// ValueError is returned when Validate rejects a value.
type ValueError struct {
	Name  string
	Value string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid @%s value %q", e.Name, e.Value)
}

func (e *ValueError) Unwrap() error { return apperr.ErrInvalidDirectiveValue }

// Registry binds directive names to processors. It is built once and is safe
// for concurrent use after setup.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register binds p under its name.
func (r *Registry) Register(p Processor) error {
	name := p.Name()
	if _, ok := r.processors[name]; ok {
		return fmt.Errorf("%w: @%s", apperr.ErrDuplicateDirective, name)
	}
	r.processors[name] = p
	return nil
}

// Names returns the registered directive names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.processors))
	for n := range r.processors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Process validates then applies a directive value. Validation failures and
// unknown names are returned as errors; failures inside Apply are captured in
// the Result so one bad directive does not abort the document.
func (r *Registry) Process(ctx context.Context, name, raw string, scope *Scope) (res Result, err error) {
	p, ok := r.processors[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: @%s", apperr.ErrUnknownDirective, name)
	}
	if !p.Validate(raw) {
		return Result{}, &ValueError{Name: name, Value: raw}
	}

	res = Result{Name: name, Raw: raw}
	defer func() {
		if rec := recover(); rec != nil {
			res.Success = false
			res.Value = nil
			res.Err = fmt.Errorf("@%s: processor panic: %v", name, rec)
		}
	}()

	value, applyErr := p.Apply(ctx, raw, scope)
	var skip *SkipSignal
	switch {
	case errors.As(applyErr, &skip):
		res.Skip = skip
	case applyErr != nil:
		res.Err = fmt.Errorf("@%s: %w", name, applyErr)
	default:
		res.Success = true
		res.Value = value
	}
	return res, nil
}
