package store

import (
	"context"
	"time"

	"github.com/starford/quire/internal/models"
)

// ProcessedHashes returns the content hashes already consumed for scope+pattern.
func (db *DB) ProcessedHashes(ctx context.Context, scopeKey, pattern string) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT content_hash FROM file_states
		WHERE scope_key = ? AND pattern = ?
	`, scopeKey, pattern)
	if err != nil {
		return nil, wrap("processed hashes", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, wrap("scan hash", err)
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

// LastProcessedByPath returns, per normalized path, the most recent processed_at.
func (db *DB) LastProcessedByPath(ctx context.Context, scopeKey, pattern string) (map[string]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT display_path, MAX(processed_at) FROM file_states
		WHERE scope_key = ? AND pattern = ?
		GROUP BY display_path
	`, scopeKey, pattern)
	if err != nil {
		return nil, wrap("last processed", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			p  string
			at int64
		)
		if err := rows.Scan(&p, &at); err != nil {
			return nil, wrap("scan last processed", err)
		}
		out[p] = fromUnix(at)
	}
	return out, rows.Err()
}

// MarkProcessed upserts consumed files within a transaction.
func (db *DB) MarkProcessed(ctx context.Context, recs []models.FileStateRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_states (scope_key, pattern, content_hash, display_path, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope_key, pattern, content_hash) DO UPDATE SET
			display_path = excluded.display_path,
			processed_at = excluded.processed_at
	`)
	if err != nil {
		return wrap("prepare file state upsert", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.ScopeKey, r.Pattern, r.ContentHash, r.DisplayPath, toUnix(r.ProcessedAt)); err != nil {
			return wrap("upsert file state", err)
		}
	}
	return tx.Commit()
}

// FileStates lists every record for a scope, newest first.
func (db *DB) FileStates(ctx context.Context, scopeKey string) ([]models.FileStateRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT scope_key, pattern, content_hash, display_path, processed_at
		FROM file_states WHERE scope_key = ?
		ORDER BY processed_at DESC, display_path
	`, scopeKey)
	if err != nil {
		return nil, wrap("list file states", err)
	}
	defer rows.Close()

	var out []models.FileStateRecord
	for rows.Next() {
		var (
			r  models.FileStateRecord
			at int64
		)
		if err := rows.Scan(&r.ScopeKey, &r.Pattern, &r.ContentHash, &r.DisplayPath, &at); err != nil {
			return nil, wrap("scan file state", err)
		}
		r.ProcessedAt = fromUnix(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
