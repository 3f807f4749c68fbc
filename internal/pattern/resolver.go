package pattern

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// DefaultPendingLimit is used by {pending} without an explicit count.
const DefaultPendingLimit = 10

var (
	pendingRe = regexp.MustCompile(`^\{pending(?::(\d+))?\}$`)
	latestRe  = regexp.MustCompile(`^\{latest(?::(\d+))?\}$`)
)

// Kind classifies how a pattern selected its files.
type Kind string

const (
	KindFile    Kind = "file"
	KindGlob    Kind = "glob"
	KindLatest  Kind = "latest"
	KindPending Kind = "pending"
)

// StateReader is the read side of the file state store.
type StateReader interface {
	ProcessedHashes(ctx context.Context, scopeKey, pattern string) (map[string]struct{}, error)
	LastProcessedByPath(ctx context.Context, scopeKey, pattern string) (map[string]time.Time, error)
}

// Selection is the outcome of resolving one pattern.
type Selection struct {
	Kind Kind
	// Pattern is the date-resolved pattern; for pending selections it is the
	// state key (directory plus "{pending}").
	Pattern string
	Files   []models.FileRecord
	// Missing is set when a single-file pattern named a file that does not exist.
	Missing bool
}

// Resolver resolves patterns against one vault and scope.
type Resolver struct {
	Vault        storage.Provider
	State        StateReader
	ScopeKey     string
	Env          Env
	PendingLimit int
}

// Resolve expands p into a file selection. It never writes state.
func (r *Resolver) Resolve(ctx context.Context, p string) (*Selection, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, fmt.Errorf("pattern: empty pattern")
	}
	if err := CheckSafe(p); err != nil {
		return nil, err
	}
	resolved := ResolveDates(p, r.Env)
	if err := CheckSafe(resolved); err != nil {
		return nil, err
	}

	dir, base := path.Split(resolved)
	dir = strings.TrimSuffix(dir, "/")
	if strings.ContainsAny(dir, "{}") || HasGlob(dir) {
		return nil, fmt.Errorf("pattern: wildcards are only allowed in the file name: %q", p)
	}

	switch {
	case pendingRe.MatchString(base):
		limit := r.PendingLimit
		if limit <= 0 {
			limit = DefaultPendingLimit
		}
		if m := pendingRe.FindStringSubmatch(base); m[1] != "" {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				limit = n
			}
		}
		return r.pending(ctx, dir, limit)
	case latestRe.MatchString(base):
		limit := 1
		if m := latestRe.FindStringSubmatch(base); m[1] != "" {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				limit = n
			}
		}
		return r.latest(dir, limit)
	case strings.ContainsAny(base, "{}"):
		return nil, fmt.Errorf("pattern: unknown token in %q", p)
	case HasGlob(base):
		return r.glob(dir, base)
	default:
		return r.single(resolved)
	}
}

// PendingKey is the state key shared by every {pending[:N]} pattern over dir.
func PendingKey(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return "{pending}"
	}
	return dir + "/{pending}"
}

// NormalizePath returns the vault-relative, extension-stripped identifier
// under which file state is recorded.
func NormalizePath(p string) string {
	return StripExt(strings.TrimPrefix(path.Clean("/"+p), "/"))
}

func (r *Resolver) single(p string) (*Selection, error) {
	sel := &Selection{Kind: KindFile, Pattern: p}
	candidates := []string{p}
	if path.Ext(p) == "" {
		candidates = append(candidates, p+".md")
	}
	for _, c := range candidates {
		info, err := r.Vault.Stat(c)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		rec, err := r.load(info)
		if err != nil {
			return nil, err
		}
		sel.Files = []models.FileRecord{rec}
		return sel, nil
	}
	sel.Missing = true
	return sel, nil
}

func (r *Resolver) glob(dir, base string) (*Selection, error) {
	infos, err := r.Vault.ListDir(dir)
	if err != nil {
		return nil, err
	}
	sel := &Selection{Kind: KindGlob, Pattern: joinDir(dir, base)}
	for _, info := range infos {
		ok, err := MatchName(base, info.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := r.load(info)
		if err != nil {
			return nil, err
		}
		sel.Files = append(sel.Files, rec)
	}
	return sel, nil
}

func (r *Resolver) latest(dir string, limit int) (*Selection, error) {
	infos, err := r.Vault.ListDir(dir)
	if err != nil {
		return nil, err
	}
	ranked := RankByEmbeddedDate(infos, r.Env.Now.Location())
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	sel := &Selection{Kind: KindLatest, Pattern: joinDir(dir, fmt.Sprintf("{latest:%d}", limit))}
	for _, info := range ranked {
		rec, err := r.load(info)
		if err != nil {
			return nil, err
		}
		sel.Files = append(sel.Files, rec)
	}
	return sel, nil
}

func (r *Resolver) load(info storage.FileInfo) (models.FileRecord, error) {
	data, err := r.Vault.Read(info.Path)
	if err != nil {
		return models.FileRecord{}, err
	}
	return models.FileRecord{
		Path:    info.Path,
		Name:    StripExt(info.Name),
		Content: string(data),
		Hash:    checksum.Sum(data),
		ModTime: info.ModTime,
	}, nil
}

func joinDir(dir, base string) string {
	if dir == "" {
		return base
	}
	return dir + "/" + base
}

// embeddedDateFormats are tried in order against a file name.
var embeddedDateFormats = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02"},
	{regexp.MustCompile(`\d{4}_\d{2}_\d{2}`), "2006_01_02"},
	{regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`), "2006.01.02"},
	{regexp.MustCompile(`\d{8}`), "20060102"},
	{regexp.MustCompile(`\d{4}-\d{2}`), "2006-01"},
}

// EmbeddedDate extracts the first parseable date from a file name.
func EmbeddedDate(name string, loc *time.Location) (time.Time, bool) {
	for _, f := range embeddedDateFormats {
		for _, m := range f.re.FindAllString(name, -1) {
			if t, err := time.ParseInLocation(f.layout, m, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// RankByEmbeddedDate orders files newest first by the date in their name.
// Files without an embedded date follow, newest modification first.
func RankByEmbeddedDate(infos []storage.FileInfo, loc *time.Location) []storage.FileInfo {
	type ranked struct {
		info  storage.FileInfo
		date  time.Time
		dated bool
	}
	rs := make([]ranked, len(infos))
	for i, info := range infos {
		d, ok := EmbeddedDate(info.Name, loc)
		rs[i] = ranked{info: info, date: d, dated: ok}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.dated != b.dated {
			return a.dated
		}
		if a.dated {
			if !a.date.Equal(b.date) {
				return a.date.After(b.date)
			}
			return a.info.Name > b.info.Name
		}
		if !a.info.ModTime.Equal(b.info.ModTime) {
			return a.info.ModTime.After(b.info.ModTime)
		}
		return a.info.Name > b.info.Name
	})
	out := make([]storage.FileInfo, len(rs))
	for i, r := range rs {
		out[i] = r.info
	}
	return out
}
