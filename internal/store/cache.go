package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/starford/quire/internal/models"
)

const cacheColumns = `session_id, vault_name, template_name, section_key,
	template_hash, cache_mode, ttl_seconds, raw_output, created_at`

// AppendEntry inserts a new cache row. Rows are never updated in place.
func (db *DB) AppendEntry(ctx context.Context, e models.CacheEntry) error {
	var ttl sql.NullInt64
	if e.TTL > 0 {
		ttl = sql.NullInt64{Int64: int64(e.TTL / time.Second), Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO section_cache (`+cacheColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.VaultName, e.TemplateName, e.SectionKey,
		e.TemplateHash, e.CacheMode, ttl, e.RawOutput, toUnix(e.CreatedAt))
	if err != nil {
		return wrap("append cache entry", err)
	}
	return nil
}

// LatestEntry returns the newest row for key, or nil when there is none.
func (db *DB) LatestEntry(ctx context.Context, key models.CacheKey) (*models.CacheEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+cacheColumns+` FROM section_cache
		WHERE session_id = ? AND vault_name = ? AND template_name = ? AND section_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, key.SessionID, key.VaultName, key.TemplateName, key.SectionKey)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("latest cache entry", err)
	}
	return e, nil
}

// RecentEntries returns up to limit rows for key, newest first.
func (db *DB) RecentEntries(ctx context.Context, key models.CacheKey, limit int) ([]models.CacheEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cacheColumns+` FROM section_cache
		WHERE session_id = ? AND vault_name = ? AND template_name = ? AND section_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key.SessionID, key.VaultName, key.TemplateName, key.SectionKey, limit)
	if err != nil {
		return nil, wrap("recent cache entries", err)
	}
	defer rows.Close()

	var out []models.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrap("scan cache entry", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.CacheEntry, error) {
	var (
		e       models.CacheEntry
		ttl     sql.NullInt64
		created int64
	)
	if err := s.Scan(&e.SessionID, &e.VaultName, &e.TemplateName, &e.SectionKey,
		&e.TemplateHash, &e.CacheMode, &ttl, &e.RawOutput, &created); err != nil {
		return nil, err
	}
	if ttl.Valid {
		e.TTL = time.Duration(ttl.Int64) * time.Second
	}
	e.CreatedAt = fromUnix(created)
	return &e, nil
}
