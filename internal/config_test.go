package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quire/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestTemplatesConfig_RejectsEscapingDirs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Templates.WorkflowsDir = "../outside"
	if err := cfg.Validate(); err == nil {
		t.Fatal("workflows_dir outside the vault should fail")
	}
}

func TestPipelineConfig(t *testing.T) {
	cfg := PipelineConfig{WeekStart: "Sunday"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Weekday() != time.Sunday {
		t.Errorf("weekday = %v", cfg.Weekday())
	}

	bad := PipelineConfig{WeekStart: "someday"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown week_start should fail")
	}
	neg := PipelineConfig{DefaultPendingLimit: -1}
	if err := neg.Validate(); err == nil {
		t.Error("negative pending limit should fail")
	}
	if (&PipelineConfig{}).Weekday() != time.Monday {
		t.Error("unset week start should default to Monday")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("QUIRE_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  http:
    port: 9090
vault:
  path: /data/vault
  name: personal
auth:
  mode: token
  token: ${QUIRE_TEST_TOKEN}
pipeline:
  week_start: sunday
  timeout: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Token != "s3cret" || cfg.Vault.Name != "personal" || cfg.App.HTTP.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Pipeline.Timeout != 90*time.Second || cfg.Pipeline.Weekday() != time.Sunday {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Templates.WorkflowsDir != "workflows" {
		t.Errorf("defaults lost: %+v", cfg.Templates)
	}
}
