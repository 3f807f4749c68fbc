package output

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/starford/quire/internal/storage"
)

// maxSuffix bounds the search for a free numeric suffix in ModeNew.
const maxSuffix = 10000

// Write is one routed section output.
type Write struct {
	Target  Target
	Header  string
	Content string
	Mode    Mode
}

// Buffers holds named in-memory outputs for one invocation.
type Buffers map[string]string

// Router writes outputs into a vault and a buffer set.
type Router struct {
	Vault storage.Provider
}

// NewRouter returns a router over vault.
func NewRouter(vault storage.Provider) *Router {
	return &Router{Vault: vault}
}

// Route writes w and returns the concrete location written (file path or
// buffer name). Context targets are not handled here; the caller appends
// them to its curated result.
func (r *Router) Route(w Write, buffers Buffers) (string, error) {
	mode := w.Mode
	if mode == "" {
		mode = ModeAppend
	}
	body := Render(w.Header, w.Content)

	switch w.Target.Kind {
	case KindFile:
		return r.writeFile(w.Target.Path, body, mode)
	case KindBuffer:
		if buffers == nil {
			return "", fmt.Errorf("output: no buffer set for %q", w.Target.Name)
		}
		return writeBuffer(buffers, w.Target.Name, body, mode), nil
	case KindContext:
		return "", fmt.Errorf("output: context targets are appended by the caller")
	default:
		return "", fmt.Errorf("output: unknown target kind %q", w.Target.Kind)
	}
}

// Render places content under an optional "## header" line.
func Render(header, content string) string {
	content = strings.TrimSpace(content)
	if header == "" {
		return content
	}
	if content == "" {
		return "## " + header
	}
	return "## " + header + "\n\n" + content
}

func (r *Router) writeFile(p, body string, mode Mode) (string, error) {
	if r.Vault == nil {
		return "", fmt.Errorf("output: no vault for file target %q", p)
	}
	switch mode {
	case ModeReplace:
		return p, r.Vault.Write(p, []byte(body+"\n"))
	case ModeNew:
		free, err := r.nextFreePath(p)
		if err != nil {
			return "", err
		}
		return free, r.Vault.Write(free, []byte(body+"\n"))
	default:
		existing, err := r.Vault.Read(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		sep := ""
		if len(existing) > 0 {
			sep = "\n"
			if !strings.HasSuffix(string(existing), "\n") {
				sep = "\n\n"
			}
		}
		return p, r.Vault.Append(p, []byte(sep+body+"\n"))
	}
}

// nextFreePath returns p when unused, else the first "name-N.ext" that is.
func (r *Router) nextFreePath(p string) (string, error) {
	if !r.exists(p) {
		return p, nil
	}
	ext := path.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for n := 1; n < maxSuffix; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !r.exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("output: no free suffix for %q", p)
}

func (r *Router) exists(p string) bool {
	_, err := r.Vault.Stat(p)
	return err == nil
}

func writeBuffer(buffers Buffers, name, body string, mode Mode) string {
	switch mode {
	case ModeReplace:
		buffers[name] = body
		return name
	case ModeNew:
		free := name
		for n := 1; ; n++ {
			if _, taken := buffers[free]; !taken {
				break
			}
			free = fmt.Sprintf("%s-%d", name, n)
		}
		buffers[free] = body
		return free
	default:
		if prev, ok := buffers[name]; ok && prev != "" {
			buffers[name] = prev + "\n\n" + body
		} else {
			buffers[name] = body
		}
		return name
	}
}
