package output

import (
	"testing"

	"github.com/starford/quire/internal/storage"
)

func testRouter(t *testing.T) (*Router, storage.Provider) {
	t.Helper()
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(vault), vault
}

func read(t *testing.T, vault storage.Provider, p string) string {
	t.Helper()
	data, err := vault.Read(p)
	if err != nil {
		t.Fatalf("Read %s: %v", p, err)
	}
	return string(data)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAppend, "Append": ModeAppend, "replace": ModeReplace, " new ": ModeNew} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("overwrite"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRoute_FileAppendDefault(t *testing.T) {
	r, vault := testRouter(t)
	target := Target{Kind: KindFile, Path: "out/log.md"}
	if _, err := r.Route(Write{Target: target, Header: "Day 1", Content: "first"}, nil); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if _, err := r.Route(Write{Target: target, Content: "second"}, nil); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got := read(t, vault, "out/log.md"); got != "## Day 1\n\nfirst\n\nsecond\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRoute_FileReplace(t *testing.T) {
	r, vault := testRouter(t)
	target := Target{Kind: KindFile, Path: "out.md"}
	_, _ = r.Route(Write{Target: target, Content: "old"}, nil)
	if _, err := r.Route(Write{Target: target, Content: "new", Mode: ModeReplace}, nil); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got := read(t, vault, "out.md"); got != "new\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRoute_FileNewAllocatesSuffix(t *testing.T) {
	r, vault := testRouter(t)
	target := Target{Kind: KindFile, Path: "reports/weekly.md"}

	var got []string
	for i := 0; i < 3; i++ {
		p, err := r.Route(Write{Target: target, Content: "report", Mode: ModeNew}, nil)
		if err != nil {
			t.Fatalf("Route: %v", err)
		}
		got = append(got, p)
	}
	want := []string{"reports/weekly.md", "reports/weekly-1.md", "reports/weekly-2.md"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if read(t, vault, "reports/weekly.md") != "report\n" {
		t.Error("original file was overwritten")
	}
}

func TestRoute_Buffers(t *testing.T) {
	r, _ := testRouter(t)
	bufs := Buffers{}
	target := Target{Kind: KindBuffer, Name: "notes"}

	_, _ = r.Route(Write{Target: target, Content: "a"}, bufs)
	_, _ = r.Route(Write{Target: target, Content: "b"}, bufs)
	if bufs["notes"] != "a\n\nb" {
		t.Errorf("append buffer = %q", bufs["notes"])
	}

	_, _ = r.Route(Write{Target: target, Content: "c", Mode: ModeReplace}, bufs)
	if bufs["notes"] != "c" {
		t.Errorf("replace buffer = %q", bufs["notes"])
	}

	name, _ := r.Route(Write{Target: target, Content: "d", Mode: ModeNew}, bufs)
	if name != "notes-1" || bufs["notes-1"] != "d" {
		t.Errorf("new buffer = %q -> %q", name, bufs[name])
	}
}

func TestRoute_ContextIsCallerOwned(t *testing.T) {
	r, _ := testRouter(t)
	if _, err := r.Route(Write{Target: Target{Kind: KindContext}, Content: "x"}, Buffers{}); err == nil {
		t.Error("expected error for context target")
	}
}

func TestRender(t *testing.T) {
	if got := Render("", " body "); got != "body" {
		t.Errorf("Render = %q", got)
	}
	if got := Render("H", ""); got != "## H" {
		t.Errorf("Render = %q", got)
	}
}
