package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/pattern"
)

// Loader resolves template names to files: the vault override first, then
// the system directory. Loaded templates are memoised per path and reused
// while the file's mtime and size are unchanged.
type Loader struct {
	// SystemDir holds the system-wide template defaults.
	SystemDir string

	mu   sync.Mutex
	memo map[string]*Template
}

// NewLoader returns a loader backed by systemDir.
func NewLoader(systemDir string) *Loader {
	return &Loader{SystemDir: systemDir, memo: make(map[string]*Template)}
}

// Load returns template name from <vaultRoot>/<subdir>/<name>.md, falling back
// to <SystemDir>/<name>.md. vaultRoot may be empty.
func (l *Loader) Load(vaultRoot, subdir, name string) (*Template, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".md")
	if name == "" {
		return nil, fmt.Errorf("templates: empty template name")
	}
	if err := pattern.CheckSafe(name); err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	if pattern.HasGlob(name) {
		return nil, fmt.Errorf("templates: %w: %q", apperr.ErrUnsafePattern, name)
	}

	for _, c := range l.candidates(vaultRoot, subdir, name) {
		info, err := os.Stat(c.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("templates: stat %s: %w", c.path, err)
		}
		if info.IsDir() {
			continue
		}
		return l.load(c.path, name, c.tier, info)
	}
	return nil, fmt.Errorf("templates: %w: %s", apperr.ErrNotFound, name)
}

type candidate struct {
	path string
	tier Tier
}

func (l *Loader) candidates(vaultRoot, subdir, name string) []candidate {
	rel := filepath.FromSlash(name + ".md")
	var out []candidate
	if vaultRoot != "" {
		out = append(out, candidate{filepath.Join(vaultRoot, filepath.FromSlash(subdir), rel), TierVault})
	}
	if l.SystemDir != "" {
		out = append(out, candidate{filepath.Join(l.SystemDir, rel), TierSystem})
	}
	return out
}

func (l *Loader) load(abs, name string, tier Tier, info fs.FileInfo) (*Template, error) {
	l.mu.Lock()
	cached, ok := l.memo[abs]
	l.mu.Unlock()
	if ok && cached.ModTime.Equal(info.ModTime()) && int64(len(cached.Content)) == info.Size() {
		return cached, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", abs, err)
	}
	t, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	t.Tier = tier
	t.Path = abs
	t.ModTime = info.ModTime()

	l.mu.Lock()
	l.memo[abs] = t
	l.mu.Unlock()
	return t, nil
}

// Invalidate drops the memoised template read from abs.
func (l *Loader) Invalidate(abs string) {
	l.mu.Lock()
	delete(l.memo, filepath.Clean(abs))
	l.mu.Unlock()
}

// List returns the template names available under <vaultRoot>/<subdir> and
// the system directory, deduplicated and sorted.
func (l *Loader) List(vaultRoot, subdir string) ([]string, error) {
	seen := make(map[string]struct{})
	dirs := []string{}
	if vaultRoot != "" {
		dirs = append(dirs, filepath.Join(vaultRoot, filepath.FromSlash(subdir)))
	}
	if l.SystemDir != "" {
		dirs = append(dirs, l.SystemDir)
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("templates: list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != ".md" || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), ".md")] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Parse builds a Template from raw content. Tier, Path and ModTime are left
// for the caller.
func Parse(name string, data []byte) (*Template, error) {
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", name, err)
	}
	t := &Template{
		Name:        name,
		Content:     data,
		Hash:        checksum.Sum(data),
		Frontmatter: doc.Frontmatter,
	}
	for _, sec := range doc.Sections {
		switch {
		case strings.EqualFold(sec.Name, SectionInstructions):
			t.Instructions = sec.Content
		case strings.EqualFold(sec.Name, SectionContextInstructions):
			t.ContextInstructions = sec.Content
		default:
			t.Sections = append(t.Sections, sec)
		}
	}
	return t, nil
}
