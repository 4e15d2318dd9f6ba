// Package graphservice owns the current graph snapshot and answers the
// analysis queries against it.
package graphservice

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/linkgraph/internal/analysis"
	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/diffusion"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/index"
	"github.com/starford/linkgraph/internal/metrics"
	"github.com/starford/linkgraph/internal/paths"
	"github.com/starford/linkgraph/internal/search"
)

var _ Store = (*index.DB)(nil)

// DefaultCacheSize is the number of analysis results kept when Options
// leaves CacheSize unset.
const DefaultCacheSize = 256

// Store is the page store the service builds from and queries.
type Store interface {
	graph.Source
	analysis.CoCitationSource
	search.PageQuerier
	Counts(ctx context.Context) (index.Counts, error)
}

// Publisher is told about every new snapshot.
type Publisher interface {
	PublishGraphUpdated(generation uint64, nodes, edges int)
}

// Options configures a Service.
type Options struct {
	Settings  graph.Settings
	CacheSize int
	Palette   diffusion.Palette
	// Decay is the diffusion distance used when a query does not give one.
	Decay int
	// Sync refreshes the store before each build. Optional.
	Sync      func(ctx context.Context) error
	Publisher Publisher
	Logger    *slog.Logger
}

// Snapshot is one built graph together with its build metadata.
type Snapshot struct {
	Graph      *graph.Graph
	Generation uint64
	Stats      graph.Stats
	BuiltAt    time.Time
}

// Similarity is a scored node in an analysis result.
type Similarity struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	analysis.Score
}

// Ranking is an analysis result for one node, taken from one snapshot.
type Ranking struct {
	Node       graph.Node   `json:"node"`
	Generation uint64       `json:"generation"`
	Results    []Similarity `json:"results"`
}

// Route is a found path together with the labels of its nodes, taken from
// one snapshot.
type Route struct {
	paths.Path
	Labels     []string `json:"labels"`
	Generation uint64   `json:"generation"`
}

// Stats describes the snapshot being served.
type Stats struct {
	Generation uint64       `json:"generation"`
	Nodes      int          `json:"nodes"`
	Edges      int          `json:"edges"`
	Build      graph.Stats  `json:"build"`
	Index      index.Counts `json:"index"`
	BuiltAt    time.Time    `json:"built_at"`
}

type cacheKey struct {
	generation uint64
	kind       string
	arg        string
}

// Service coordinates store syncs, snapshot builds and analysis queries.
// Queries read the latest snapshot without locking; reloads are serialised.
type Service struct {
	store  Store
	opts   Options
	logger *slog.Logger

	reloadMu   sync.Mutex
	generation uint64
	snap       atomic.Pointer[Snapshot]
	cache      *lru.Cache[cacheKey, any]
}

// New creates a service. No snapshot exists until the first Reload.
func New(store Store, opts Options) (*Service, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Palette == (diffusion.Palette{}) {
		opts.Palette = diffusion.DefaultPalette
	}
	if opts.Decay <= 0 {
		opts.Decay = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[cacheKey, any](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("graphservice: cache: %w", err)
	}
	return &Service{store: store, opts: opts, logger: logger, cache: cache}, nil
}

// Reload syncs the store, builds a new snapshot and makes it current.
// On failure the previous snapshot keeps being served.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	snap, err := s.build(ctx)
	if err != nil {
		metrics.ObserveBuild(metrics.Build{Duration: time.Since(start), Err: err})
		s.logger.Error("graphservice: reload failed", slog.String("error", err.Error()))
		return nil, err
	}
	s.snap.Store(snap)
	s.cache.Purge()

	metrics.ObserveBuild(metrics.Build{
		Duration: time.Since(start),
		Nodes:    snap.Graph.Order(),
		Edges:    snap.Graph.Size(),
		Dropped:  snap.Stats.Dropped,
	})
	if s.opts.Publisher != nil {
		s.opts.Publisher.PublishGraphUpdated(snap.Generation, snap.Graph.Order(), snap.Graph.Size())
	}
	s.logger.Info("graphservice: snapshot ready",
		slog.Uint64("generation", snap.Generation),
		slog.Int("nodes", snap.Graph.Order()),
		slog.Int("edges", snap.Graph.Size()),
		slog.Int("dropped", snap.Stats.Dropped),
		slog.Duration("took", time.Since(start)))
	return snap, nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, error) {
	if s.opts.Sync != nil {
		if err := s.opts.Sync(ctx); err != nil {
			return nil, fmt.Errorf("graphservice: sync: %w", err)
		}
	}
	var stats graph.Stats
	g, err := graph.Build(ctx, s.store, s.opts.Settings, graph.WithLogger(s.logger), graph.WithStats(&stats))
	if err != nil {
		return nil, err
	}
	s.generation++
	return &Snapshot{Graph: g, Generation: s.generation, Stats: stats, BuiltAt: time.Now()}, nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() (*Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, apperr.ErrNoGraph
	}
	return snap, nil
}

// Stats describes the current snapshot and the store row totals.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Generation: snap.Generation,
		Nodes:      snap.Graph.Order(),
		Edges:      snap.Graph.Size(),
		Build:      snap.Stats,
		Index:      counts,
		BuiltAt:    snap.BuiltAt,
	}, nil
}

// resolve turns a node reference into a node id. A reference is a node id
// or a page name or alias, matched case-insensitively.
func resolve(g *graph.Graph, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && g.HasNode(id) {
		return id, nil
	}
	if id, ok := graph.FindNode(g, ref); ok {
		return id, nil
	}
	return 0, fmt.Errorf("node %q: %w", ref, apperr.ErrNotFound)
}

// Resolve returns the node a reference points to in the current snapshot.
func (s *Service) Resolve(ref string) (graph.Node, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return graph.Node{}, err
	}
	id, err := resolve(snap.Graph, ref)
	if err != nil {
		return graph.Node{}, err
	}
	n, _ := snap.Graph.Node(id)
	return n, nil
}

// cached returns the value stored for key, computing and storing it on a miss.
func cached[T any](s *Service, key cacheKey, compute func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			metrics.CacheHit(key.kind)
			return t, nil
		}
	}
	t, err := compute()
	metrics.ObserveQuery(key.kind, err)
	if err != nil {
		return t, err
	}
	s.cache.Add(key, t)
	return t, nil
}

// Similar ranks the nodes related to ref by Adamic-Adar score.
func (s *Service) Similar(ref string) (Ranking, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Ranking{}, err
	}
	id, err := resolve(snap.Graph, ref)
	if err != nil {
		return Ranking{}, err
	}
	key := cacheKey{generation: snap.Generation, kind: "similar", arg: strconv.FormatInt(id, 10)}
	results, err := cached(s, key, func() ([]Similarity, error) {
		return ranked(snap.Graph, analysis.AdamicAdar(snap.Graph, id)), nil
	})
	if err != nil {
		return Ranking{}, err
	}
	return newRanking(snap, id, results), nil
}

// CoCited ranks the nodes cited together with ref by co-citation score.
func (s *Service) CoCited(ctx context.Context, ref string) (Ranking, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Ranking{}, err
	}
	id, err := resolve(snap.Graph, ref)
	if err != nil {
		return Ranking{}, err
	}
	key := cacheKey{generation: snap.Generation, kind: "cocited", arg: strconv.FormatInt(id, 10)}
	results, err := cached(s, key, func() ([]Similarity, error) {
		scores, err := analysis.CoCitationScores(ctx, snap.Graph, id, s.store, s.logger)
		if err != nil {
			return nil, err
		}
		return ranked(snap.Graph, scores), nil
	})
	if err != nil {
		return Ranking{}, err
	}
	return newRanking(snap, id, results), nil
}

func newRanking(snap *Snapshot, id int64, results []Similarity) Ranking {
	n, _ := snap.Graph.Node(id)
	return Ranking{Node: n, Generation: snap.Generation, Results: results}
}

// ranked orders scores by measure, highest first, then by node id.
func ranked(g *graph.Graph, scores map[int64]Score) []Similarity {
	out := make([]Similarity, 0, len(scores))
	for id, sc := range scores {
		n, _ := g.Node(id)
		out = append(out, Similarity{ID: id, Label: n.Label, Score: sc})
	}
	slices.SortFunc(out, func(a, b Similarity) int {
		if c := cmp.Compare(b.Measure, a.Measure); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Score is re-exported for callers that only import this package.
type Score = analysis.Score

// Path finds a shortest path between two node references. Directed mode
// falls back to the reverse direction; undirected mode ignores direction.
func (s *Service) Path(from, to string, undirected bool) (Route, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Route{}, err
	}
	a, err := resolve(snap.Graph, from)
	if err != nil {
		return Route{}, err
	}
	b, err := resolve(snap.Graph, to)
	if err != nil {
		return Route{}, err
	}

	find := paths.DirectedBetween
	if undirected {
		find = paths.UndirectedBetween
	}
	p, ok := find(snap.Graph, a, b)
	metrics.ObserveQuery("path", nil)
	if !ok {
		na, _ := snap.Graph.Node(a)
		nb, _ := snap.Graph.Node(b)
		return Route{}, fmt.Errorf("%s to %s: %w", na.Label, nb.Label, apperr.ErrNoPath)
	}

	labels := make([]string, len(p.Nodes))
	for i, id := range p.Nodes {
		n, _ := snap.Graph.Node(id)
		labels[i] = n.Label
	}
	return Route{Path: p, Labels: labels, Generation: snap.Generation}, nil
}

// Colors diffuses palette colours from the seed references over the
// current snapshot and returns the colour of every node. decay <= 0 uses
// the configured default.
func (s *Service) Colors(seedRefs []string, decay int) (map[int64]string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(seedRefs) == 0 {
		return nil, fmt.Errorf("no seeds: %w", apperr.ErrInvalidArgument)
	}
	seeds := make([]int64, 0, len(seedRefs))
	for _, ref := range seedRefs {
		id, err := resolve(snap.Graph, ref)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, id)
	}
	if decay <= 0 {
		decay = s.opts.Decay
	}

	color := diffusion.LabelPropagation(snap.Graph, seeds, s.opts.Palette, decay)
	out := make(map[int64]string, snap.Graph.Order())
	for _, id := range snap.Graph.NodeIDs() {
		out[id] = color(id)
	}
	metrics.ObserveQuery("colors", nil)
	return out, nil
}

// Search returns the nodes matching query. Queries starting with
// search.QueryPrefix run against the store.
func (s *Service) Search(ctx context.Context, query string) ([]graph.Node, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	ids := search.FindNodes(ctx, query, snap.Graph, s.store, s.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := snap.Graph.Node(id); ok {
			out = append(out, n)
		}
	}
	metrics.ObserveQuery("search", nil)
	return out, nil
}

// Filter returns the ids of the nodes visible for term at depth. An empty
// term shows every node.
func (s *Service) Filter(term string, depth int) ([]int64, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, fmt.Errorf("depth %d: %w", depth, apperr.ErrInvalidArgument)
	}
	if term == "" {
		return snap.Graph.NodeIDs(), nil
	}
	key := cacheKey{generation: snap.Generation, kind: "filter", arg: strings.ToUpper(term)}
	visible, err := cached(s, key, func() (search.Visibility, error) {
		return search.Filter(snap.Graph, term), nil
	})
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, id := range snap.Graph.NodeIDs() {
		if visible(id, depth) {
			out = append(out, id)
		}
	}
	return out, nil
}
