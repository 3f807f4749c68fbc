package pattern

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// CheckSafe rejects recursive (**), parent-traversal (..) and absolute patterns.
func CheckSafe(p string) error {
	if strings.Contains(p, "**") {
		return fmt.Errorf("%w: recursive glob in %q", apperr.ErrUnsafePattern, p)
	}
	norm := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(norm, "/") {
		return fmt.Errorf("%w: absolute path %q", apperr.ErrUnsafePattern, p)
	}
	for _, part := range strings.Split(norm, "/") {
		if part == ".." {
			return fmt.Errorf("%w: parent traversal in %q", apperr.ErrUnsafePattern, p)
		}
	}
	return nil
}

// HasGlob reports whether s contains glob metacharacters.
func HasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// MatchName matches a single file name against a glob pattern.
func MatchName(glob, name string) (bool, error) {
	ok, err := path.Match(glob, name)
	if err != nil {
		return false, fmt.Errorf("pattern: bad glob %q: %w", glob, err)
	}
	return ok, nil
}

// StripExt removes the file extension from a slash path.
func StripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
