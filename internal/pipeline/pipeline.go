// Package pipeline executes the sections of a template in document order:
// directive resolution, cache decision, generation, output routing, cache
// write-back and pending-state commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/generation"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/pattern"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/store"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/tools"
)

// Status is the outcome tag of one section.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// SectionResult is the tagged result of one section.
type SectionResult struct {
	Name   string `json:"name"`
	Index  int    `json:"index"`
	Status Status `json:"status"`
	// Output is set for completed sections.
	Output string `json:"output,omitempty"`
	// Reason is set for skipped sections.
	Reason string `json:"reason,omitempty"`
	// Target is where the output was routed.
	Target          string         `json:"target,omitempty"`
	FromCache       bool           `json:"from_cache,omitempty"`
	CacheMissReason string         `json:"cache_miss_reason,omitempty"`
	Err             *TemplateError `json:"-"`
}

// Report is the result of one invocation.
type Report struct {
	InvocationID string           `json:"invocation_id"`
	Template     string           `json:"template"`
	Sections     []SectionResult  `json:"sections"`
	Warnings     []*TemplateError `json:"-"`
	// Context is the curated text routed to the "context" target.
	Context string         `json:"context"`
	Buffers output.Buffers `json:"buffers,omitempty"`
}

// Warning returns the single warning message for all section failures, or "".
func (r *Report) Warning() string { return warningText(r.Warnings) }

// Curated returns Context with the warning message injected ahead of it.
func (r *Report) Curated() string {
	w := r.Warning()
	switch {
	case w == "":
		return r.Context
	case r.Context == "":
		return w
	default:
		return w + "\n\n" + r.Context
	}
}

// Invocation is one logical call: a batch step or a chat turn.
type Invocation struct {
	// ID keys the same-run cache. Generated when empty; a caller-supplied ID
	// keeps its run cache until Release.
	ID        string
	SessionID string
	VaultName string
	Vault     storage.Provider
	// ScopeKey partitions pending-file state.
	ScopeKey string
	Template *templates.Template
	History  []models.Turn
	Buffers  output.Buffers
	// Now is the reference date for date tokens. Defaults to the clock.
	Now       time.Time
	WeekStart time.Weekday
	Tools     *tools.Catalog
	// RecentRuns is the default history window when a section has no @recent-runs.
	RecentRuns   int
	PendingLimit int
	// Model is used when a section has no @model.
	Model string
}

// Pipeline runs invocations. It holds no per-invocation state other than the
// run cache, and is safe for concurrent invocations on different scopes.
type Pipeline struct {
	registry *directive.Registry
	files    store.FileStates
	cache    store.Cache
	backend  generation.Backend
	events   EventSink
	logger   *slog.Logger
	now      func() time.Time
	runs     *runCache
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEvents sets the event sink.
func WithEvents(s EventSink) Option { return func(p *Pipeline) { p.events = s } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithClock sets the clock used for cache timestamps and processed_at.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New returns a pipeline.
func New(reg *directive.Registry, files store.FileStates, cache store.Cache, backend generation.Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: reg,
		files:    files,
		cache:    cache,
		backend:  backend,
		logger:   slog.Default(),
		now:      time.Now,
		runs:     newRunCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Release drops the run cache of an invocation ID.
func (p *Pipeline) Release(id string) { p.runs.release(id) }

// Run executes every section of inv.Template in order. Section-scoped
// failures become warnings; store and backend failures abort the invocation
// and are returned together with the partial report. Writes committed before
// the failure are kept.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) (*Report, error) {
	if inv.Template == nil {
		return nil, fmt.Errorf("pipeline: invocation has no template")
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
		defer p.runs.release(inv.ID)
	}
	if inv.Now.IsZero() {
		inv.Now = p.now()
	}
	if inv.Buffers == nil {
		inv.Buffers = output.Buffers{}
	}
	inv.WeekStart = inv.Template.WeekStart(inv.WeekStart)
	inv.Model = inv.Template.DefaultModel(inv.Model)

	r := &run{p: p, inv: inv, router: output.NewRouter(inv.Vault)}
	r.report = &Report{InvocationID: inv.ID, Template: inv.Template.Name, Buffers: inv.Buffers}
	r.log = p.logger.With(
		slog.String("invocation_id", inv.ID),
		slog.String("template", inv.Template.Name))

	for _, sec := range inv.Template.Sections {
		if err := ctx.Err(); err != nil {
			r.log.Error("pipeline: invocation cancelled", slog.String("error", err.Error()))
			return r.report, err
		}
		if err := r.section(ctx, sec); err != nil {
			r.log.Error("pipeline: invocation failed",
				slog.String("section", sec.Name),
				slog.String("error", err.Error()))
			return r.report, err
		}
	}
	r.report.Context = strings.Join(r.context, "\n\n")
	return r.report, nil
}

// run is the state of one invocation.
type run struct {
	p       *Pipeline
	inv     Invocation
	router  *output.Router
	report  *Report
	context []string
	log     *slog.Logger
}

func (r *run) emit(e Event) {
	e.InvocationID = r.inv.ID
	e.Template = r.inv.Template.Name
	e.Time = r.p.now()
	if r.p.events != nil {
		r.p.events.Emit(e)
	}
}

func (r *run) scope() *directive.Scope {
	var state pattern.StateReader
	if r.p.files != nil {
		state = r.p.files
	}
	return &directive.Scope{
		Resolver: &pattern.Resolver{
			Vault:        r.inv.Vault,
			State:        state,
			ScopeKey:     r.inv.ScopeKey,
			Env:          pattern.Env{Now: r.inv.Now, WeekStart: r.inv.WeekStart},
			PendingLimit: r.inv.PendingLimit,
		},
		Buffers: r.inv.Buffers,
		Tools:   r.inv.Tools,
	}
}

func (r *run) skip(sec parser.Section, reason string) {
	r.log.Info("pipeline: section skipped", slog.String("section", sec.Name), slog.String("reason", reason))
	r.emit(Event{Type: EventSectionSkipped, Section: sec.Name, Reason: reason})
	r.report.Sections = append(r.report.Sections, SectionResult{
		Name: sec.Name, Index: sec.Index, Status: StatusSkipped, Reason: reason,
	})
}

func (r *run) fail(sec parser.Section, te *TemplateError) {
	r.log.Warn("pipeline: section failed",
		slog.String("section", sec.Name),
		slog.String("phase", string(te.Phase)),
		slog.String("pointer", te.Pointer),
		slog.String("error", te.Err.Error()))
	r.emit(Event{Type: EventSectionFailed, Section: sec.Name, Reason: string(te.Phase)})
	r.report.Warnings = append(r.report.Warnings, te)
	r.report.Sections = append(r.report.Sections, SectionResult{
		Name: sec.Name, Index: sec.Index, Status: StatusFailed, Err: te,
	})
}

// section runs one section. A non-nil error is fatal for the invocation.
func (r *run) section(ctx context.Context, sec parser.Section) error {
	r.emit(Event{Type: EventSectionStarted, Section: sec.Name})

	res := directive.ResolveSection(ctx, r.p.registry, sec, r.scope())
	if res.Failed() {
		de := res.Errors[0]
		for _, e := range res.Errors {
			if errors.Is(e.Err, apperr.ErrStore) {
				return e.Err
			}
		}
		r.fail(sec, newTemplateError(sec.Name, de.Name, PhaseDirectiveParse, de.Err))
		return nil
	}
	if res.Skip != nil {
		r.skip(sec, res.Skip.Reason)
		return nil
	}

	runs := r.inv.RecentRuns
	if n, ok := res.Int(directive.NameRecentRuns); ok {
		runs = n
	}
	window := Window(r.inv.History, runs)
	if n, ok := res.Int(directive.NameTokenThreshold); ok && n > 0 {
		if est := EstimateTokens(window); est < n {
			r.skip(sec, fmt.Sprintf("below token threshold (%d < %d)", est, n))
			return nil
		}
	}

	key := models.CacheKey{
		SessionID:    r.inv.SessionID,
		VaultName:    r.inv.VaultName,
		TemplateName: r.inv.Template.Name,
		SectionKey:   fmt.Sprintf("%d:%s", sec.Index, sec.Name),
	}
	result := SectionResult{Name: sec.Name, Index: sec.Index, Status: StatusCompleted}
	policy, cached := res.Cache()

	var out string
	hit := false
	if prior, ok := r.p.runs.get(r.inv.ID, key); ok {
		out, hit = prior, true
		r.emit(Event{Type: EventCacheHit, Section: sec.Name, Reason: "same_run", ContentHash: checksum.String(out)})
	} else if cached {
		entry, err := r.p.cache.LatestEntry(ctx, key)
		if err != nil {
			return err
		}
		ok, reason := CheckEntry(entry, r.inv.Template.Hash, policy, r.p.now(), r.inv.WeekStart)
		if ok {
			out, hit = entry.RawOutput, true
			r.log.Debug("pipeline: cache hit", slog.String("section", sec.Name), slog.String("mode", policy.Mode))
			r.emit(Event{Type: EventCacheHit, Section: sec.Name, Reason: policy.Mode, ContentHash: checksum.String(out)})
		} else {
			result.CacheMissReason = reason
			r.log.Debug("pipeline: cache miss", slog.String("section", sec.Name), slog.String("reason", reason))
			r.emit(Event{Type: EventCacheMiss, Section: sec.Name, Reason: reason})
		}
	}

	if !hit {
		var err error
		out, err = r.generate(ctx, sec, res, key, window)
		switch {
		case errors.Is(err, generation.ErrUnsupportedModel):
			r.fail(sec, newTemplateError(sec.Name, directive.NameModel, PhaseManagerRun, err))
			return nil
		case errors.Is(err, apperr.ErrStore):
			return err
		case err != nil:
			return fmt.Errorf("%w: section %q: %w", apperr.ErrBackend, sec.Name, err)
		}
	}
	result.Output = out
	result.FromCache = hit

	target, ok := res.Output()
	if !ok {
		target = output.Target{Kind: output.KindContext}
	}
	header, ok := res.Header()
	if !ok {
		header = sec.Name
	}
	if strings.TrimSpace(out) != "" {
		mode := res.WriteMode()
		switch {
		case target.Kind == output.KindContext:
			r.context = append(r.context, output.Render(header, out))
			result.Target = target.String()
		case hit && target.Kind == output.KindFile && mode != output.ModeReplace:
			// The vault already holds this output from the run that cached it.
			result.Target = target.String()
		default:
			loc, err := r.router.Route(output.Write{
				Target: target, Header: header, Content: out, Mode: mode,
			}, r.inv.Buffers)
			if err != nil {
				r.fail(sec, newTemplateError(sec.Name, directive.NameOutput, PhaseOutputWrite, err))
				return nil
			}
			result.Target = string(target.Kind) + ":" + loc
		}
	}
	r.p.runs.put(r.inv.ID, key, out)

	if !hit {
		if cached {
			err := r.p.cache.AppendEntry(ctx, models.CacheEntry{
				CacheKey:     key,
				TemplateHash: r.inv.Template.Hash,
				CacheMode:    policy.Mode,
				TTL:          policy.TTL,
				RawOutput:    out,
				CreatedAt:    r.p.now(),
			})
			if err != nil {
				return err
			}
		}
		if err := r.commitPending(ctx, sec, res.Inputs()); err != nil {
			return err
		}
	}

	hash := checksum.String(out)
	r.log.Info("pipeline: section completed",
		slog.String("section", sec.Name),
		slog.Bool("from_cache", hit),
		slog.String("content_hash", checksum.Short(hash)))
	r.emit(Event{Type: EventSectionCompleted, Section: sec.Name, ContentHash: hash})
	r.report.Sections = append(r.report.Sections, result)
	return nil
}

func (r *run) generate(ctx context.Context, sec parser.Section, res *directive.SectionResolution, key models.CacheKey, window []models.Turn) (string, error) {
	model := r.inv.Model
	if m, ok := res.Model(); ok {
		if m.None {
			return "", nil
		}
		model = m.Name
	}

	var summaries []models.CacheEntry
	if n, ok := res.Int(directive.NameRecentSummaries); ok && n > 0 {
		var err error
		summaries, err = r.p.cache.RecentEntries(ctx, key, n)
		if err != nil {
			return "", err
		}
	}

	if r.p.backend == nil {
		return "", fmt.Errorf("no generation backend configured")
	}
	return r.p.backend.Generate(ctx, generation.Request{
		Instructions: r.inv.Template.Instructions,
		Prompt:       buildPrompt(sec.Content, res.Inputs(), summaries),
		History:      window,
		Tools:        res.Tools(),
		Model:        model,
	})
}

// commitPending records consumed pending selections, one state write per
// selection.
func (r *run) commitPending(ctx context.Context, sec parser.Section, inputs []directive.Input) error {
	for _, in := range inputs {
		recs := pattern.StateRecords(r.inv.ScopeKey, in.Selection, r.p.now())
		if len(recs) == 0 {
			continue
		}
		if r.p.files == nil {
			return fmt.Errorf("%w: no file state store for %s", apperr.ErrStore, in.Selection.Pattern)
		}
		if err := r.p.files.MarkProcessed(ctx, recs); err != nil {
			return err
		}
		files := make([]string, len(recs))
		for i, rec := range recs {
			files[i] = rec.DisplayPath
		}
		r.log.Info("pipeline: pending committed",
			slog.String("section", sec.Name),
			slog.String("pattern", in.Selection.Pattern),
			slog.Int("files", len(recs)))
		r.emit(Event{Type: EventPendingCommitted, Section: sec.Name, Reason: in.Selection.Pattern, Files: files})
	}
	return nil
}
