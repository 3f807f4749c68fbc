// Package workflow runs scheduled workflow templates as batch steps.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pattern"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/tools"
)

// Runner executes workflows of one vault. Callers must not run the same
// workflow concurrently; pending state is not locked across invocations.
type Runner struct {
	Loader    *templates.Loader
	Pipeline  *pipeline.Pipeline
	Registry  *directive.Registry
	State     pattern.StateReader
	Vault     storage.Provider
	VaultName string
	// Subdir is the vault directory holding workflow overrides.
	Subdir string
	Tools  *tools.Catalog

	WeekStart    time.Weekday
	RecentRuns   int
	PendingLimit int
	Model        string

	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Result is the outcome of one workflow run.
type Result struct {
	Workflow string           `json:"workflow"`
	Skipped  bool             `json:"skipped,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Warning  string           `json:"warning,omitempty"`
}

// ScopeKey returns the pending-state scope for a workflow.
func (r *Runner) ScopeKey(name string) string {
	return r.VaultName + "/" + name
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run loads workflow name and executes it with now as the reference date.
func (r *Runner) Run(ctx context.Context, name string, now time.Time) (*Result, error) {
	tpl, err := r.Loader.Load(r.Vault.Root(), r.Subdir, name)
	if err != nil {
		return nil, err
	}
	if !tpl.Enabled() {
		r.logger().Info("workflow: disabled, not running", slog.String("workflow", name))
		return &Result{Workflow: name, Skipped: true, Reason: "disabled"}, nil
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	rep, err := r.Pipeline.Run(ctx, pipeline.Invocation{
		SessionID:    "workflow:" + name,
		VaultName:    r.VaultName,
		Vault:        r.Vault,
		ScopeKey:     r.ScopeKey(name),
		Template:     tpl,
		Now:          now,
		WeekStart:    r.WeekStart,
		Tools:        r.Tools,
		RecentRuns:   r.RecentRuns,
		PendingLimit: r.PendingLimit,
		Model:        r.Model,
	})
	if err != nil {
		return &Result{Workflow: name, Report: rep}, fmt.Errorf("workflow %s: %w", name, err)
	}

	r.logger().Info("workflow: run finished",
		slog.String("workflow", name),
		slog.String("invocation_id", rep.InvocationID),
		slog.Int("sections", len(rep.Sections)),
		slog.Int("warnings", len(rep.Warnings)),
		slog.Duration("elapsed", time.Since(start)))
	return &Result{Workflow: name, Report: rep, Warning: rep.Warning()}, nil
}

// Pending lists what pattern would select for workflow name right now,
// without committing anything.
func (r *Runner) Pending(ctx context.Context, name, p string, now time.Time) (*pattern.Selection, error) {
	res := &pattern.Resolver{
		Vault:        r.Vault,
		State:        r.State,
		ScopeKey:     r.ScopeKey(name),
		Env:          pattern.Env{Now: now, WeekStart: r.WeekStart},
		PendingLimit: r.PendingLimit,
	}
	return res.Resolve(ctx, p)
}

// Resolve resolves the directives of document text for scopeKey. It never
// writes file state or cache entries.
func (r *Runner) Resolve(ctx context.Context, scopeKey string, text []byte, now time.Time) (*directive.Resolution, error) {
	scope := &directive.Scope{
		Resolver: &pattern.Resolver{
			Vault:        r.Vault,
			State:        r.State,
			ScopeKey:     scopeKey,
			Env:          pattern.Env{Now: now, WeekStart: r.WeekStart},
			PendingLimit: r.PendingLimit,
		},
		Tools: r.Tools,
	}
	return directive.Resolve(ctx, r.Registry, text, scope)
}

// StateLister is implemented by file state stores that can enumerate a scope.
type StateLister interface {
	FileStates(ctx context.Context, scopeKey string) ([]models.FileStateRecord, error)
}

// Processed returns every file state recorded for workflow name.
func (r *Runner) Processed(ctx context.Context, name string) ([]models.FileStateRecord, error) {
	lister, ok := r.State.(StateLister)
	if !ok {
		return nil, fmt.Errorf("workflow: state store cannot list records")
	}
	return lister.FileStates(ctx, r.ScopeKey(name))
}

// List returns the workflow names available to this vault.
func (r *Runner) List() ([]string, error) {
	return r.Loader.List(r.Vault.Root(), r.Subdir)
}
