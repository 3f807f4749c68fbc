package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/pattern"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Templates TemplatesConfig   `yaml:"templates"`
	Pipeline  PipelineConfig    `yaml:"pipeline"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Templates.Validate(); err != nil {
		return err
	}
	return c.Pipeline.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the Markdown vault directory and the name that
// partitions its cache and pending state.
type VaultConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Name, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TemplatesConfig locates templates. SystemDir holds the defaults;
// WorkflowsDir and ContextDir are vault-relative override directories.
type TemplatesConfig struct {
	SystemDir    string `yaml:"system_dir"`
	WorkflowsDir string `yaml:"workflows_dir"`
	ContextDir   string `yaml:"context_dir"`
}

// Validate validates the templates configuration.
func (c *TemplatesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WorkflowsDir, validation.Required, validation.By(vaultRelative)),
		validation.Field(&c.ContextDir, validation.Required, validation.By(vaultRelative)),
	)
}

func vaultRelative(v interface{}) error {
	s, _ := v.(string)
	return pattern.CheckSafe(s)
}

// PipelineConfig holds section pipeline defaults.
type PipelineConfig struct {
	WeekStart           string        `yaml:"week_start"`
	DefaultRecentRuns   int           `yaml:"default_recent_runs"`
	DefaultPendingLimit int           `yaml:"default_pending_limit"`
	Timeout             time.Duration `yaml:"timeout"`
	DefaultModel        string        `yaml:"default_model"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DefaultRecentRuns, validation.Min(0)),
		validation.Field(&c.DefaultPendingLimit, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.WeekStart != "" {
		if _, err := pattern.ParseWeekday(c.WeekStart); err != nil {
			return fmt.Errorf("pipeline: week_start: %w", err)
		}
	}
	return nil
}

// Weekday returns the configured week start, Monday when unset.
func (c *PipelineConfig) Weekday() time.Weekday {
	d, err := pattern.ParseWeekday(strings.TrimSpace(c.WeekStart))
	if err != nil {
		return time.Monday
	}
	return d
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
			Name: "default",
		},
		SQLite: SQLiteConfig{
			Path: "./quire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Templates: TemplatesConfig{
			SystemDir:    "./templates",
			WorkflowsDir: "workflows",
			ContextDir:   "context",
		},
		Pipeline: PipelineConfig{
			WeekStart:           "monday",
			DefaultRecentRuns:   3,
			DefaultPendingLimit: pattern.DefaultPendingLimit,
			Timeout:             5 * time.Minute,
		},
	}
}
