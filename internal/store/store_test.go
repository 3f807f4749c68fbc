package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var t0 = time.Date(2026, 10, 14, 8, 0, 0, 123456789, time.UTC)

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM file_states`).Scan(&count); err != nil {
		t.Fatalf("file_states table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM section_cache`).Scan(&count); err != nil {
		t.Fatalf("section_cache table missing: %v", err)
	}
}

func TestMarkProcessed_HashesAndPaths(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	recs := []models.FileStateRecord{
		{ScopeKey: "v/w", Pattern: "inbox/{pending}", ContentHash: "h1", DisplayPath: "inbox/a", ProcessedAt: t0},
		{ScopeKey: "v/w", Pattern: "inbox/{pending}", ContentHash: "h2", DisplayPath: "inbox/b", ProcessedAt: t0},
		{ScopeKey: "v/other", Pattern: "inbox/{pending}", ContentHash: "h3", DisplayPath: "inbox/c", ProcessedAt: t0},
	}
	if err := db.MarkProcessed(ctx, recs); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	hashes, err := db.ProcessedHashes(ctx, "v/w", "inbox/{pending}")
	if err != nil {
		t.Fatalf("ProcessedHashes: %v", err)
	}
	if len(hashes) != 2 {
		t.Errorf("hashes = %v, want h1 and h2 only", hashes)
	}
	if _, ok := hashes["h3"]; ok {
		t.Error("scope leaked into another scope")
	}

	last, err := db.LastProcessedByPath(ctx, "v/w", "inbox/{pending}")
	if err != nil {
		t.Fatalf("LastProcessedByPath: %v", err)
	}
	if !last["inbox/a"].Equal(t0) {
		t.Errorf("processed_at = %v, want %v (nanosecond precision)", last["inbox/a"], t0)
	}
}

func TestMarkProcessed_UpsertKeepsLatestTime(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := models.FileStateRecord{ScopeKey: "v/w", Pattern: "p", ContentHash: "h1", DisplayPath: "a", ProcessedAt: t0}
	_ = db.MarkProcessed(ctx, []models.FileStateRecord{rec})
	rec.ProcessedAt = t0.Add(time.Hour)
	rec.DisplayPath = "moved/a"
	if err := db.MarkProcessed(ctx, []models.FileStateRecord{rec}); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	all, err := db.FileStates(ctx, "v/w")
	if err != nil {
		t.Fatalf("FileStates: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows = %d, want 1 (unique on hash)", len(all))
	}
	if all[0].DisplayPath != "moved/a" || !all[0].ProcessedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("row = %+v", all[0])
	}
}

func TestLastProcessedByPath_MaxAcrossHashes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.MarkProcessed(ctx, []models.FileStateRecord{
		{ScopeKey: "s", Pattern: "p", ContentHash: "old", DisplayPath: "a", ProcessedAt: t0},
		{ScopeKey: "s", Pattern: "p", ContentHash: "new", DisplayPath: "a", ProcessedAt: t0.Add(2 * time.Hour)},
	})
	last, _ := db.LastProcessedByPath(ctx, "s", "p")
	if !last["a"].Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("last = %v", last["a"])
	}
}

func TestCache_AppendAndLatest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	key := models.CacheKey{SessionID: "s1", VaultName: "v", TemplateName: "daily", SectionKey: "1:Summary"}

	got, err := db.LatestEntry(ctx, key)
	if err != nil {
		t.Fatalf("LatestEntry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}

	first := models.CacheEntry{CacheKey: key, TemplateHash: "th", CacheMode: "duration", TTL: 90 * time.Minute, RawOutput: "one", CreatedAt: t0}
	second := models.CacheEntry{CacheKey: key, TemplateHash: "th", CacheMode: "daily", RawOutput: "two", CreatedAt: t0.Add(time.Minute)}
	if err := db.AppendEntry(ctx, first); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if err := db.AppendEntry(ctx, second); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}

	got, err = db.LatestEntry(ctx, key)
	if err != nil || got == nil {
		t.Fatalf("LatestEntry: %v, %v", got, err)
	}
	if got.RawOutput != "two" || got.CacheMode != "daily" || got.TTL != 0 || !got.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("latest = %+v", got)
	}

	recent, err := db.RecentEntries(ctx, key, 5)
	if err != nil {
		t.Fatalf("RecentEntries: %v", err)
	}
	if len(recent) != 2 || recent[0].RawOutput != "two" || recent[1].RawOutput != "one" {
		t.Fatalf("recent = %+v", recent)
	}
	if recent[1].TTL != 90*time.Minute {
		t.Errorf("ttl = %v", recent[1].TTL)
	}
}

func TestCache_KeysAreIsolated(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	key := models.CacheKey{SessionID: "s1", VaultName: "v", TemplateName: "daily", SectionKey: "0:A"}
	_ = db.AppendEntry(ctx, models.CacheEntry{CacheKey: key, TemplateHash: "th", CacheMode: "session", RawOutput: "x", CreatedAt: t0})

	other := key
	other.SessionID = "s2"
	got, err := db.LatestEntry(ctx, other)
	if err != nil {
		t.Fatalf("LatestEntry: %v", err)
	}
	if got != nil {
		t.Errorf("entry leaked across sessions: %+v", got)
	}
	recent, _ := db.RecentEntries(ctx, key, 0)
	if recent != nil {
		t.Errorf("limit 0 should return nil, got %+v", recent)
	}
}

func TestErrorsWrapErrStore(t *testing.T) {
	db := testDB(t)
	db.Close()

	_, err := db.ProcessedHashes(context.Background(), "s", "p")
	if !errors.Is(err, apperr.ErrStore) {
		t.Errorf("err = %v, want ErrStore", err)
	}
	err = db.AppendEntry(context.Background(), models.CacheEntry{CreatedAt: t0})
	if !errors.Is(err, apperr.ErrStore) {
		t.Errorf("err = %v, want ErrStore", err)
	}
}
