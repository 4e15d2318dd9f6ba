package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkgraph/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Snapshot.
	r.Get("/graph", h.Graph)
	r.Get("/graph/stats", h.Stats)
	r.Post("/graph/reload", h.Reload)

	// Per-node analyses. {ref} is a node id or a page name.
	r.Route("/nodes/{ref}", func(r chi.Router) {
		r.Get("/", h.Node)
		r.Get("/similar", h.Similar)
		r.Get("/cocitations", h.CoCitations)
	})

	r.Get("/paths", h.Path)
	r.Get("/colors", h.Colors)
	r.Get("/search", h.Search)
	r.Get("/filter", h.Filter)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
