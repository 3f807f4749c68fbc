package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/storage"
)

func testCatalog(t *testing.T) (*Catalog, storage.Provider) {
	t.Helper()
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return Builtin(vault), vault
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestLookup_OrderAndMissing(t *testing.T) {
	c, _ := testCatalog(t)
	hs, err := c.Lookup([]string{"list_files", " read_file"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(hs) != 2 || hs[0].Name() != "list_files" || hs[1].Name() != "read_file" {
		t.Errorf("handles = %v", hs)
	}
	if _, err := c.Lookup([]string{"nope"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	c, vault := testCatalog(t)
	if err := c.Add(ReadFile(vault)); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestReadAndListFiles(t *testing.T) {
	c, vault := testCatalog(t)
	_ = vault.Write("notes/a.md", []byte("alpha"))

	hs, _ := c.Lookup([]string{"read_file", "list_files"})
	r, err := hs[0].Call(context.Background(), map[string]any{"path": "notes/a.md"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resultText(r) != "alpha" {
		t.Errorf("read_file = %q", resultText(r))
	}

	r, _ = hs[1].Call(context.Background(), map[string]any{"folder": "notes"})
	if resultText(r) != "notes/a.md" {
		t.Errorf("list_files = %q", resultText(r))
	}

	r, _ = hs[0].Call(context.Background(), map[string]any{"path": "missing.md"})
	if !r.IsError {
		t.Error("expected tool error for missing file")
	}
}

func TestAll_Sorted(t *testing.T) {
	c, _ := testCatalog(t)
	all := c.All()
	if len(all) != 2 || all[0].Name() != "list_files" {
		t.Errorf("all = %v", all)
	}
}
