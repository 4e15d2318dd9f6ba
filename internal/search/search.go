// Package search finds nodes by name or store query and builds
// depth-bounded visibility filters around them.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/linkgraph/internal/graph"
)

// QueryPrefix marks a query that is handed to the page store verbatim.
const QueryPrefix = "q:"

// PageQuerier runs a store query and returns the ids of the matching pages.
type PageQuerier interface {
	QueryPages(ctx context.Context, query string) ([]int64, error)
}

// PageQuerierFunc adapts a function to PageQuerier.
type PageQuerierFunc func(ctx context.Context, query string) ([]int64, error)

// QueryPages implements PageQuerier.
func (f PageQuerierFunc) QueryPages(ctx context.Context, query string) ([]int64, error) {
	return f(ctx, query)
}

// FindNodes returns the nodes of g matching query.
//
// A query starting with QueryPrefix is lower-cased and sent to q; rows that
// are not nodes of g are dropped, and a failing query yields no results.
// Any other query matches a node whose label contains it, or one of whose
// aliases contains it ignoring case. Results follow node insertion order,
// except for store queries which keep the store's row order.
func FindNodes(ctx context.Context, query string, g *graph.Graph, q PageQuerier, logger *slog.Logger) []int64 {
	var found []int64
	if query == "" {
		return found
	}

	if rest, ok := strings.CutPrefix(query, QueryPrefix); ok {
		if q == nil {
			return found
		}
		ids, err := q.QueryPages(ctx, strings.ToLower(rest))
		if err != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("search: query failed",
				slog.String("query", rest),
				slog.String("error", err.Error()))
			return found
		}
		for _, id := range ids {
			if g.HasNode(id) {
				found = append(found, id)
			}
		}
		return found
	}

	up := strings.ToUpper(query)
	for _, n := range g.Nodes() {
		if strings.Contains(n.Label, query) || aliasContains(n.Aliases, up) {
			found = append(found, n.ID)
		}
	}
	return found
}

func aliasContains(aliases []string, up string) bool {
	for _, a := range aliases {
		if strings.Contains(strings.ToUpper(a), up) {
			return true
		}
	}
	return false
}

// Visibility decides whether a node is shown at a requested depth.
type Visibility func(node int64, maxDepth int) bool

// Filter measures, for every node, the fewest hops over the undirected
// projection of g to any node whose label contains term ignoring case.
// The returned Visibility hides a measured node only when it lies further
// than maxDepth. Nodes not connected to any match are always visible.
func Filter(g *graph.Graph, term string) Visibility {
	dist := Distances(g, term)
	return func(node int64, maxDepth int) bool {
		d, ok := dist[node]
		if !ok {
			return true
		}
		return maxDepth >= d
	}
}

// Distances returns the hop distance of every node reachable from a label
// match of term. Matches themselves are at distance 0.
func Distances(g *graph.Graph, term string) map[int64]int {
	dist := make(map[int64]int)
	up := strings.ToUpper(term)
	var u *graph.Undirected
	for _, n := range g.Nodes() {
		if !strings.Contains(strings.ToUpper(n.Label), up) {
			continue
		}
		if u == nil {
			u = g.Undirected()
		}
		for id, d := range u.Lengths(n.ID) {
			if cur, ok := dist[id]; !ok || d < cur {
				dist[id] = d
			}
		}
	}
	return dist
}
