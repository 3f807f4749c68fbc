// Package curator builds the curated context of a chat session from a
// context template.
package curator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/tools"
)

// Curator runs context templates for chat turns.
type Curator struct {
	Loader    *templates.Loader
	Pipeline  *pipeline.Pipeline
	Vault     storage.Provider
	VaultName string
	// Subdir is the vault directory holding context template overrides.
	Subdir string
	Tools  *tools.Catalog

	WeekStart  time.Weekday
	RecentRuns int
	Model      string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Request is one chat turn to curate for.
type Request struct {
	SessionID string        `json:"session_id"`
	Template  string        `json:"template"`
	History   []models.Turn `json:"history"`
	// TurnID groups curations of one chat turn. Sections already computed
	// under the same turn are reused until EndTurn is called. Empty means the
	// curation is its own turn.
	TurnID string `json:"turn_id,omitempty"`
	// Now overrides the reference date.
	Now time.Time `json:"now,omitempty"`
}

// Curated is the context handed to the chat model.
type Curated struct {
	SessionID string           `json:"session_id"`
	Template  string           `json:"template"`
	Text      string           `json:"text"`
	Report    *pipeline.Report `json:"report"`
}

// Curate runs req.Template against the session history.
func (c *Curator) Curate(ctx context.Context, req Request) (*Curated, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("curator: session id is required")
	}
	tpl, err := c.Loader.Load(c.Vault.Root(), c.Subdir, req.Template)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	rep, err := c.Pipeline.Run(ctx, pipeline.Invocation{
		ID:         turnKey(req.SessionID, req.TurnID),
		SessionID:  req.SessionID,
		VaultName:  c.VaultName,
		Vault:      c.Vault,
		ScopeKey:   c.VaultName + "/session/" + req.SessionID,
		Template:   tpl,
		History:    req.History,
		Now:        req.Now,
		WeekStart:  c.WeekStart,
		Tools:      c.Tools,
		RecentRuns: c.RecentRuns,
		Model:      c.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("curator: session %s: %w", req.SessionID, err)
	}

	parts := make([]string, 0, 2)
	if tpl.ContextInstructions != "" {
		parts = append(parts, tpl.ContextInstructions)
	}
	if body := rep.Curated(); body != "" {
		parts = append(parts, body)
	}

	if c.Logger != nil {
		c.Logger.Info("curator: context built",
			slog.String("session_id", req.SessionID),
			slog.String("template", tpl.Name),
			slog.String("invocation_id", rep.InvocationID),
			slog.Int("warnings", len(rep.Warnings)))
	}
	return &Curated{
		SessionID: req.SessionID,
		Template:  tpl.Name,
		Text:      strings.Join(parts, "\n\n"),
		Report:    rep,
	}, nil
}

// EndTurn drops the section outputs held for a turn of a session.
func (c *Curator) EndTurn(sessionID, turnID string) {
	if id := turnKey(sessionID, turnID); id != "" {
		c.Pipeline.Release(id)
	}
}

func turnKey(sessionID, turnID string) string {
	if turnID == "" {
		return ""
	}
	return sessionID + "/" + turnID
}
