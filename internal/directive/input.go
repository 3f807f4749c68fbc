package directive

import (
	"context"
	"regexp"
	"strings"

	"github.com/starford/quire/internal/pattern"
)

var (
	inputRe    = regexp.MustCompile(`^(?:(file|buffer|variable):)?\S.*$`)
	requiredRe = regexp.MustCompile(`(?i)\s+\(?required\)?\s*$`)
)

type inputProcessor struct{}

func (inputProcessor) Name() string { return NameInput }

func (inputProcessor) Validate(v string) bool {
	src, target, _ := parseInput(v)
	return inputRe.MatchString(strings.TrimSpace(v)) && src != "" && target != ""
}

func (inputProcessor) Apply(ctx context.Context, v string, scope *Scope) (any, error) {
	src, target, required := parseInput(v)
	in := Input{Source: src, Target: target, Required: required}

	switch src {
	case SourceBuffer:
		content, ok := scope.Buffers[target]
		if (!ok || strings.TrimSpace(content) == "") && required {
			return nil, Skip("required input missing: buffer:%s", target)
		}
		in.Buffer = content
		return in, nil
	default:
		if scope.Resolver == nil {
			return nil, errNoResolver
		}
		sel, err := scope.Resolver.Resolve(ctx, target)
		if err != nil {
			return nil, err
		}
		in.Selection = sel
		if len(sel.Files) == 0 {
			if sel.Kind == pattern.KindPending {
				return nil, Skip("no pending files for %s", sel.Pattern)
			}
			if required {
				return nil, Skip("required input missing: file:%s", sel.Pattern)
			}
		}
		return in, nil
	}
}

// parseInput splits "kind:target (required)" into its parts.
func parseInput(v string) (source, target string, required bool) {
	v = strings.TrimSpace(v)
	if loc := requiredRe.FindStringIndex(v); loc != nil && loc[0] > 0 {
		required = true
		v = strings.TrimSpace(v[:loc[0]])
	}
	source = SourceFile
	if i := strings.Index(v, ":"); i > 0 {
		switch prefix := strings.ToLower(v[:i]); prefix {
		case "file":
			v = v[i+1:]
		case "buffer", "variable":
			source = SourceBuffer
			v = v[i+1:]
		}
	}
	return source, strings.TrimSpace(v), required
}
