package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/curator"
	"github.com/starford/quire/internal/workflow"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(runner *workflow.Runner, cur *curator.Curator, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(runner, cur)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/resolve", h.Resolve)

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", h.ListWorkflows)
		r.Post("/{name}/run", h.RunWorkflow)
		r.Get("/{name}/pending", h.Pending)
		r.Get("/{name}/processed", h.Processed)
	})

	r.Post("/sessions/{id}/curate", h.Curate)
	r.Delete("/sessions/{id}/turns/{turn}", h.EndTurn)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
