package pattern

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/quire/internal/models"
)

// pending lists the markdown notes of dir oldest-first and drops files
// already consumed for this scope. Other extensions are never pending, since
// state is keyed by extension-stripped path. A file counts as consumed when its content hash was recorded, or when
// its normalized path was recorded strictly after its current modification
// time. An edit whose mtime is at or after processed_at is treated as new.
func (r *Resolver) pending(ctx context.Context, dir string, limit int) (*Selection, error) {
	if r.State == nil {
		return nil, fmt.Errorf("pattern: {pending} requires a file state store")
	}
	key := PendingKey(dir)
	sel := &Selection{Kind: KindPending, Pattern: key}

	infos, err := r.Vault.ListDir(dir)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].ModTime.Before(infos[j].ModTime)
		}
		return infos[i].Name < infos[j].Name
	})

	hashes, err := r.State.ProcessedHashes(ctx, r.ScopeKey, key)
	if err != nil {
		return nil, err
	}
	lastByPath, err := r.State.LastProcessedByPath(ctx, r.ScopeKey, key)
	if err != nil {
		return nil, err
	}

	for _, info := range infos {
		if len(sel.Files) >= limit {
			break
		}
		if !isNote(info.Name) {
			continue
		}
		rec, err := r.load(info)
		if err != nil {
			return nil, err
		}
		if _, done := hashes[rec.Hash]; done {
			continue
		}
		if at, ok := lastByPath[NormalizePath(rec.Path)]; ok && at.After(rec.ModTime) {
			continue
		}
		sel.Files = append(sel.Files, rec)
	}
	return sel, nil
}

func isNote(name string) bool {
	ext := path.Ext(name)
	return ext == "" || strings.EqualFold(ext, ".md")
}

// StateRecords converts a pending selection into rows for the state store.
func StateRecords(scopeKey string, sel *Selection, processedAt time.Time) []models.FileStateRecord {
	if sel == nil || sel.Kind != KindPending {
		return nil
	}
	out := make([]models.FileStateRecord, 0, len(sel.Files))
	for _, f := range sel.Files {
		out = append(out, models.FileStateRecord{
			ScopeKey:    scopeKey,
			Pattern:     sel.Pattern,
			ContentHash: f.Hash,
			DisplayPath: NormalizePath(f.Path),
			ProcessedAt: processedAt,
		})
	}
	return out
}
