package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/curator"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/workflow"
)

// Handler holds API route handlers.
type Handler struct {
	runner  *workflow.Runner
	curator *curator.Curator
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(runner *workflow.Runner, cur *curator.Curator) *Handler {
	return &Handler{runner: runner, curator: cur, now: time.Now}
}

func (h *Handler) refTime(t time.Time) time.Time {
	if t.IsZero() {
		return h.now()
	}
	return t
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve the directives of a document without side effects
//	@Tags			resolve
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Document"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	scope := req.ScopeKey
	if scope == "" {
		scope = h.runner.ScopeKey("resolve")
	}
	res, err := h.runner.Resolve(r.Context(), scope, []byte(req.Content), h.refTime(req.Now))
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, toResolveResponse(res))
}

// ListWorkflows handles GET /api/workflows.
//
//	@Summary		List available workflows
//	@Tags			workflows
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/workflows [get]
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	names, err := h.runner.List()
	if err != nil {
		writeError(w, "list workflows", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": names})
}

// RunWorkflow handles POST /api/workflows/{name}/run.
//
//	@Summary		Run a workflow now
//	@Tags			workflows
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string		true	"Workflow name"
//	@Param			body	body		RunRequest	false	"Reference date"
//	@Success		200		{object}	workflow.Result
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workflows/{name}/run [post]
func (h *Handler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req RunRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.runner.Run(r.Context(), name, h.refTime(req.Now))
	if err != nil {
		writeError(w, "run workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Pending handles GET /api/workflows/{name}/pending.
//
//	@Summary		List files a pending pattern would select for a workflow
//	@Tags			workflows
//	@Produce		json
//	@Param			name	path		string	true	"Workflow name"
//	@Param			pattern	query		string	true	"Pattern, e.g. inbox/{pending:5}"
//	@Success		200		{object}	PendingResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workflows/{name}/pending [get]
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p := r.URL.Query().Get("pattern")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'pattern' is required"))
		return
	}
	sel, err := h.runner.Pending(r.Context(), name, p, h.now())
	if err != nil {
		if errors.Is(err, apperr.ErrStore) {
			writeError(w, "pending", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, PendingResponse{Workflow: name, Pattern: sel.Pattern, Files: toFiles(sel)})
}

// Processed handles GET /api/workflows/{name}/processed.
//
//	@Summary		List the file states a workflow has recorded
//	@Tags			workflows
//	@Produce		json
//	@Param			name	path		string	true	"Workflow name"
//	@Success		200		{object}	map[string][]models.FileStateRecord
//	@Security		BearerAuth
//	@Router			/workflows/{name}/processed [get]
func (h *Handler) Processed(w http.ResponseWriter, r *http.Request) {
	recs, err := h.runner.Processed(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "processed", err)
		return
	}
	if recs == nil {
		recs = []models.FileStateRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// Curate handles POST /api/sessions/{id}/curate.
//
//	@Summary		Build the curated context for a chat turn
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		CurateRequest	true	"Template and history"
//	@Success		200		{object}	curator.Curated
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/curate [post]
func (h *Handler) Curate(w http.ResponseWriter, r *http.Request) {
	var req CurateRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Template == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("template is required"))
		return
	}
	out, err := h.curator.Curate(r.Context(), curator.Request{
		SessionID: chi.URLParam(r, "id"),
		Template:  req.Template,
		History:   req.History,
		TurnID:    req.TurnID,
		Now:       req.Now,
	})
	if err != nil {
		writeError(w, "curate", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// EndTurn handles DELETE /api/sessions/{id}/turns/{turn}.
func (h *Handler) EndTurn(w http.ResponseWriter, r *http.Request) {
	h.curator.EndTurn(chi.URLParam(r, "id"), chi.URLParam(r, "turn"))
	w.WriteHeader(http.StatusNoContent)
}
