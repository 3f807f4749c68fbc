package directive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/pattern"
	"github.com/starford/quire/internal/tools"
)

var (
	errNoResolver = errors.New("no pattern resolver in scope")

	outputRe = regexp.MustCompile(`^(?i:context|(?:file|buffer|variable):\S.*)$`)
	modelRe  = regexp.MustCompile(`^[A-Za-z0-9._:/@-]+$`)
	toolsRe  = regexp.MustCompile(`^[A-Za-z0-9_.-]+(?:[\s,]+[A-Za-z0-9_.-]+)*$`)
	intRe    = regexp.MustCompile(`^\d+$`)
)

// NewDefaultRegistry returns a registry with every built-in processor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Builtins() {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Builtins returns fresh instances of the built-in processors.
func Builtins() []Processor {
	return []Processor{
		inputProcessor{},
		outputProcessor{},
		headerProcessor{},
		writeModeProcessor{},
		cacheProcessor{},
		modelProcessor{},
		toolsProcessor{},
		runOnProcessor{},
		intProcessor{name: NameRecentRuns},
		intProcessor{name: NameRecentSummaries},
		intProcessor{name: NameTokenThreshold},
	}
}

type outputProcessor struct{}

func (outputProcessor) Name() string { return NameOutput }

func (outputProcessor) Validate(v string) bool {
	return validation.Validate(strings.TrimSpace(v), validation.Required, validation.Match(outputRe)) == nil
}

func (outputProcessor) Apply(_ context.Context, v string, scope *Scope) (any, error) {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "context") {
		return output.Target{Kind: output.KindContext}, nil
	}
	i := strings.Index(v, ":")
	kind, target := strings.ToLower(v[:i]), strings.TrimSpace(v[i+1:])
	if kind == "buffer" || kind == "variable" {
		return output.Target{Kind: output.KindBuffer, Name: target}, nil
	}

	if err := pattern.CheckSafe(target); err != nil {
		return nil, err
	}
	p := pattern.ResolveDates(target, scope.Env())
	if err := pattern.CheckSafe(p); err != nil {
		return nil, err
	}
	if pattern.HasGlob(p) || strings.ContainsAny(p, "{}") {
		return nil, fmt.Errorf("output path %q must name a single file", target)
	}
	if path.Ext(p) == "" {
		p += ".md"
	}
	return output.Target{Kind: output.KindFile, Path: p}, nil
}

type headerProcessor struct{}

func (headerProcessor) Name() string { return NameHeader }

func (headerProcessor) Validate(v string) bool {
	return validation.Validate(strings.TrimSpace(v), validation.Required) == nil
}

func (headerProcessor) Apply(_ context.Context, v string, scope *Scope) (any, error) {
	return pattern.ResolveDates(strings.TrimSpace(v), scope.Env()), nil
}

type writeModeProcessor struct{}

func (writeModeProcessor) Name() string { return NameWriteMode }

func (writeModeProcessor) Validate(v string) bool {
	return validation.Validate(strings.ToLower(strings.TrimSpace(v)), validation.Required,
		validation.In(string(output.ModeAppend), string(output.ModeReplace), string(output.ModeNew))) == nil
}

func (writeModeProcessor) Apply(_ context.Context, v string, _ *Scope) (any, error) {
	return output.ParseMode(v)
}

type modelProcessor struct{}

func (modelProcessor) Name() string { return NameModel }

func (modelProcessor) Validate(v string) bool {
	return validation.Validate(strings.TrimSpace(v), validation.Required, validation.Match(modelRe)) == nil
}

func (modelProcessor) Apply(_ context.Context, v string, _ *Scope) (any, error) {
	name := strings.TrimSpace(v)
	return ModelChoice{Name: name, None: strings.EqualFold(name, "none")}, nil
}

type toolsProcessor struct{}

func (toolsProcessor) Name() string { return NameTools }

func (toolsProcessor) Validate(v string) bool {
	return validation.Validate(strings.TrimSpace(v), validation.Required, validation.Match(toolsRe)) == nil
}

func (toolsProcessor) Apply(_ context.Context, v string, scope *Scope) (any, error) {
	names := splitList(v)
	if len(names) == 1 && strings.EqualFold(names[0], "none") {
		return []tools.Handle{}, nil
	}
	if scope.Tools == nil {
		return nil, fmt.Errorf("no tool catalog available for %v", names)
	}
	return scope.Tools.Lookup(names)
}

type intProcessor struct {
	name string
}

func (p intProcessor) Name() string { return p.name }

func (p intProcessor) Validate(v string) bool {
	return validation.Validate(strings.TrimSpace(v), validation.Required, validation.Match(intRe)) == nil
}

func (p intProcessor) Apply(_ context.Context, v string, _ *Scope) (any, error) {
	return strconv.Atoi(strings.TrimSpace(v))
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
