package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pattern"
)

// FileStates is the file state store contract.
type FileStates interface {
	pattern.StateReader
	MarkProcessed(ctx context.Context, recs []models.FileStateRecord) error
}

// Cache is the section cache store contract.
type Cache interface {
	LatestEntry(ctx context.Context, key models.CacheKey) (*models.CacheEntry, error)
	AppendEntry(ctx context.Context, e models.CacheEntry) error
	RecentEntries(ctx context.Context, key models.CacheKey, limit int) ([]models.CacheEntry, error)
}

// Verify *DB satisfies both contracts at compile time.
var (
	_ FileStates = (*DB)(nil)
	_ Cache      = (*DB)(nil)
)

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n) }

// wrap tags a persistence failure with apperr.ErrStore.
func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrStore, op, err)
}
