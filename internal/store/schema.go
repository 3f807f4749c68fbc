// Package store persists file consumption state and section cache history
// in a single embedded SQLite database.
package store

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_states (
	scope_key    TEXT    NOT NULL,
	pattern      TEXT    NOT NULL,
	content_hash TEXT    NOT NULL,
	display_path TEXT    NOT NULL,
	processed_at INTEGER NOT NULL,
	UNIQUE(scope_key, pattern, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_file_states_path ON file_states(scope_key, pattern, display_path);

CREATE TABLE IF NOT EXISTS section_cache (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT    NOT NULL,
	vault_name    TEXT    NOT NULL,
	template_name TEXT    NOT NULL,
	section_key   TEXT    NOT NULL,
	template_hash TEXT    NOT NULL,
	cache_mode    TEXT    NOT NULL,
	ttl_seconds   INTEGER,
	raw_output    TEXT    NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_section_cache_key
	ON section_cache(session_id, vault_name, template_name, section_key, created_at);
`

// DB wraps a sql.DB with state and cache operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, wrap("open db", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, wrap("ping", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, wrap("apply schema", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PingContext checks that the database is reachable.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
