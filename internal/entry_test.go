package internal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.Vault.Name = "personal"
	cfg.SQLite.Path = filepath.Join(dir, "quire.db")
	cfg.Templates.SystemDir = filepath.Join(dir, "templates")
	return cfg
}

func TestNewApp_RequiresConfig(t *testing.T) {
	if _, err := NewApp(); err == nil {
		t.Error("expected error without config")
	}
}

func TestNewApp_RunsWorkflowEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewApp(WithConfig(cfg), WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	testutil.WriteFile(t, cfg.Templates.SystemDir, "daily.md", `# Daily

## Plan
@output file:journal/{today}
Plan the day.
`, time.Time{})

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	res, err := app.Runner.Run(context.Background(), "daily", now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped || len(res.Report.Sections) != 1 {
		t.Fatalf("result = %+v", res)
	}
	data, err := app.Vault.Read("journal/2026-10-14.md")
	if err != nil || !strings.Contains(string(data), "Plan the day.") {
		t.Errorf("journal = %q, %v", data, err)
	}

	if got := app.Runner.ScopeKey("daily"); got != "personal/daily" {
		t.Errorf("scope = %q", got)
	}
	if err := app.DB.PingContext(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestTemplateDirs(t *testing.T) {
	cfg := testConfig(t)
	app := &App{Config: cfg}
	dirs := app.templateDirs()
	if len(dirs) != 3 || dirs[0] != cfg.Templates.SystemDir {
		t.Fatalf("dirs = %v", dirs)
	}
	if dirs[1] != filepath.Join(cfg.Vault.Path, "workflows") || dirs[2] != filepath.Join(cfg.Vault.Path, "context") {
		t.Errorf("vault dirs = %v", dirs[1:])
	}
}
