// Package output routes section output to files, named buffers, or the
// running context. Batch steps and chat curation share the same router.
package output

import (
	"fmt"
	"strings"
)

// Mode controls how a file or buffer target is written.
type Mode string

const (
	ModeAppend  Mode = "append"
	ModeReplace Mode = "replace"
	ModeNew     Mode = "new"
)

// ParseMode parses a write mode. Empty means append.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAppend, nil
	case ModeAppend, ModeReplace, ModeNew:
		return m, nil
	default:
		return "", fmt.Errorf("output: unknown write mode %q", s)
	}
}

// Kind is the type of an output target.
type Kind string

const (
	KindFile    Kind = "file"
	KindBuffer  Kind = "buffer"
	KindContext Kind = "context"
)

// Target is a resolved output destination.
type Target struct {
	Kind Kind
	// Path is the vault-relative file path for KindFile.
	Path string
	// Name is the buffer name for KindBuffer.
	Name string
}

// String renders the target the way it is written in a directive.
func (t Target) String() string {
	switch t.Kind {
	case KindFile:
		return "file:" + t.Path
	case KindBuffer:
		return "buffer:" + t.Name
	default:
		return string(t.Kind)
	}
}
