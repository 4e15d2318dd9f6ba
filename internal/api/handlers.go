package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/graphservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// nodeRef extracts the node reference from the URL. Supports encoded
// names from OpenAPI clients (e.g. Go%20Concurrency).
func nodeRef(r *http.Request) string {
	raw := chi.URLParam(r, "ref")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the current graph snapshot
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.svc.Snapshot()
	if err != nil {
		writeServiceError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{
		Generation: snap.Generation,
		Nodes:      snap.Graph.Nodes(),
		Edges:      snap.Graph.Edges(),
	})
}

// Stats handles GET /api/graph/stats.
//
//	@Summary		Describe the current graph snapshot
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Reload handles POST /api/graph/reload.
//
//	@Summary		Re-sync the vault and rebuild the graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Reload(r.Context()); err != nil {
		writeServiceError(w, "reload", err)
		return
	}
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, "reload", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Node handles GET /api/nodes/{ref}.
//
//	@Summary		Get a node by id or page name
//	@Tags			nodes
//	@Produce		json
//	@Param			ref	path		string	true	"Node id or page name"
//	@Success		200	{object}	graph.Node
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{ref} [get]
func (h *Handler) Node(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Resolve(nodeRef(r))
	if err != nil {
		writeServiceError(w, "node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Similar handles GET /api/nodes/{ref}/similar.
//
//	@Summary		Rank nodes by Adamic-Adar similarity
//	@Tags			nodes
//	@Produce		json
//	@Param			ref	path		string	true	"Node id or page name"
//	@Success		200	{object}	SimilarityResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{ref}/similar [get]
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	rank, err := h.svc.Similar(nodeRef(r))
	if err != nil {
		writeServiceError(w, "similar", err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

// CoCitations handles GET /api/nodes/{ref}/cocitations.
//
//	@Summary		Rank nodes cited alongside a node
//	@Tags			nodes
//	@Produce		json
//	@Param			ref	path		string	true	"Node id or page name"
//	@Success		200	{object}	SimilarityResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{ref}/cocitations [get]
func (h *Handler) CoCitations(w http.ResponseWriter, r *http.Request) {
	rank, err := h.svc.CoCited(r.Context(), nodeRef(r))
	if err != nil {
		writeServiceError(w, "cocitations", err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

// Path handles GET /api/paths.
//
//	@Summary		Find a shortest path between two nodes
//	@Tags			paths
//	@Produce		json
//	@Param			from	query		string	true	"Start node id or name"
//	@Param			to		query		string	true	"End node id or name"
//	@Param			mode	query		string	false	"Traversal mode"	Enums(directed, undirected)
//	@Success		200		{object}	PathResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/paths [get]
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'from' and 'to' are required"))
		return
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = "directed"
	}
	if mode != "directed" && mode != "undirected" {
		writeJSON(w, http.StatusBadRequest, errorBody("mode must be 'directed' or 'undirected'"))
		return
	}

	route, err := h.svc.Path(from, to, mode == "undirected")
	if err != nil {
		writeServiceError(w, "path", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Mode: mode, Route: route})
}

// Colors handles GET /api/colors.
//
//	@Summary		Diffuse seed colours over the graph
//	@Tags			colors
//	@Produce		json
//	@Param			seeds	query		string	true	"Comma separated node ids or names"
//	@Param			decay	query		int		false	"Diffusion distance"
//	@Success		200		{object}	ColorsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/colors [get]
func (h *Handler) Colors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var seeds []string
	for _, s := range strings.Split(q.Get("seeds"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'seeds' is required"))
		return
	}
	decay := 0
	if raw := q.Get("decay"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("decay must be a non-negative integer"))
			return
		}
		decay = d
	}

	colors, err := h.svc.Colors(seeds, decay)
	if err != nil {
		writeServiceError(w, "colors", err)
		return
	}
	writeJSON(w, http.StatusOK, ColorsResponse{Colors: colors})
}

// Search handles GET /api/search.
//
//	@Summary		Find nodes by label or alias, or by store query with the q: prefix
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	if results == nil {
		results = []graph.Node{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Filter handles GET /api/filter.
//
//	@Summary		List the nodes visible within a depth of a term
//	@Tags			search
//	@Produce		json
//	@Param			term	query		string	false	"Label filter"
//	@Param			depth	query		int		false	"Maximum hops from a match"
//	@Success		200		{object}	FilterResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/filter [get]
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("term")
	depth := 0
	if raw := q.Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("depth must be an integer"))
			return
		}
		depth = d
	}

	visible, err := h.svc.Filter(term, depth)
	if err != nil {
		writeServiceError(w, "filter", err)
		return
	}
	if visible == nil {
		visible = []int64{}
	}
	slog.Debug("filter", slog.String("term", term), slog.Int("depth", depth), slog.Int("visible", len(visible)))
	writeJSON(w, http.StatusOK, FilterResponse{Term: term, Depth: depth, Visible: visible})
}
