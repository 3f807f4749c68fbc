package curator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/generation"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/testutil"
)

const chatTemplate = `## Context Instructions
You help with the user's notes.

## Today
@input file:journal/{today}
@cache daily
Summarise today's journal.

## Broken
@write-mode sideways
x
`

func testCurator(t *testing.T) (*Curator, string, *generation.Counting) {
	t.Helper()
	root, vault := testutil.TestVault(t)
	db := testutil.TestDB(t)
	backend := &generation.Counting{Backend: generation.Echo{}}
	clock := &testutil.Clock{T: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	return &Curator{
		Loader:    templates.NewLoader(t.TempDir()),
		Pipeline:  pipeline.New(directive.NewDefaultRegistry(), db, db, backend, pipeline.WithLogger(testutil.Logger()), pipeline.WithClock(clock.Now)),
		Vault:     vault,
		VaultName: "notes",
		Subdir:    "context",
		WeekStart: time.Monday,
		Logger:    testutil.Logger(),
	}, root, backend
}

func TestCurate(t *testing.T) {
	c, root, backend := testCurator(t)
	testutil.WriteFile(t, root, "context/chat.md", chatTemplate, time.Time{})
	testutil.WriteFile(t, root, "journal/2026-10-14.md", "Walked the dog.", time.Time{})

	req := Request{
		SessionID: "s-1",
		Template:  "chat",
		History:   []models.Turn{{Role: models.RoleUser, Content: "what did I do today?"}},
	}
	got, err := c.Curate(context.Background(), req)
	if err != nil {
		t.Fatalf("Curate: %v", err)
	}
	if !strings.HasPrefix(got.Text, "You help with the user's notes.\n\n> **Template warning:**") {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.Contains(got.Text, "## Today\n\nSummarise today's journal.") || !strings.Contains(got.Text, "Walked the dog.") {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.Contains(got.Text, "## Broken (@write-mode directive)") {
		t.Errorf("warning pointer missing: %q", got.Text)
	}

	again, err := c.Curate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if backend.Calls != 1 || again.Text != got.Text {
		t.Errorf("daily cache not reused: calls=%d", backend.Calls)
	}

	req.SessionID = "s-2"
	if _, err := c.Curate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if backend.Calls != 2 {
		t.Errorf("cache leaked across sessions: calls=%d", backend.Calls)
	}
}

func TestCurate_RequiresSession(t *testing.T) {
	c, _, _ := testCurator(t)
	if _, err := c.Curate(context.Background(), Request{Template: "chat"}); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestCurate_TurnReusesSections(t *testing.T) {
	c, root, backend := testCurator(t)
	testutil.WriteFile(t, root, "context/turn.md", "## Notes\n@input file:notes/a\nSummarise.\n", time.Time{})
	testutil.WriteFile(t, root, "notes/a.md", "alpha", time.Time{})
	ctx := context.Background()
	req := Request{SessionID: "s-1", Template: "turn", TurnID: "t-1"}

	for i := 0; i < 2; i++ {
		if _, err := c.Curate(ctx, req); err != nil {
			t.Fatalf("Curate: %v", err)
		}
	}
	if backend.Calls != 1 {
		t.Fatalf("backend calls within one turn = %d, want 1", backend.Calls)
	}

	other := req
	other.SessionID = "s-2"
	if _, err := c.Curate(ctx, other); err != nil {
		t.Fatal(err)
	}
	if backend.Calls != 2 {
		t.Errorf("turn shared across sessions: calls=%d", backend.Calls)
	}

	c.EndTurn("s-1", "t-1")
	if _, err := c.Curate(ctx, req); err != nil {
		t.Fatal(err)
	}
	if backend.Calls != 3 {
		t.Errorf("ended turn still reused: calls=%d", backend.Calls)
	}

	req.TurnID = ""
	_, _ = c.Curate(ctx, req)
	_, _ = c.Curate(ctx, req)
	if backend.Calls != 5 {
		t.Errorf("curations without a turn shared sections: calls=%d", backend.Calls)
	}
}
