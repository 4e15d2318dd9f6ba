// Package paths answers shortest-path queries between named pages.
package paths

import (
	"slices"

	"github.com/starford/linkgraph/internal/graph"
)

// Path is a found path: its nodes in traversal order and, for each
// consecutive pair, the directed edge of the graph that connects them.
type Path struct {
	Nodes []int64        `json:"nodes"`
	Edges []graph.EdgeID `json:"edges"`
}

// Directed resolves both names and searches for a weighted path from a to
// b with DirectedBetween. ok is false when a name does not resolve.
func Directed(g *graph.Graph, a, b string) (Path, bool) {
	from, to, ok := resolvePair(g, a, b)
	if !ok {
		return Path{}, false
	}
	return DirectedBetween(g, from, to)
}

// DirectedBetween searches for a weighted path from node from to node to.
// When there is none it tries to -> from. A path found in reverse is
// reported in the order it was found. ok is false when neither direction
// connects.
func DirectedBetween(g *graph.Graph, from, to int64) (Path, bool) {
	nodes, ok := g.ShortestPath(from, to)
	if !ok {
		nodes, ok = g.ShortestPath(to, from)
		if !ok {
			return Path{}, false
		}
	}

	edges := make([]graph.EdgeID, 0, len(nodes))
	for i := 0; i+1 < len(nodes); i++ {
		e, found := g.Edge(nodes[i], nodes[i+1])
		if !found {
			return Path{}, false
		}
		edges = append(edges, e.ID)
	}
	return Path{Nodes: nodes, Edges: edges}, true
}

// Undirected resolves both names and searches the undirected projection of
// g with UndirectedBetween.
func Undirected(g *graph.Graph, a, b string) (Path, bool) {
	from, to, ok := resolvePair(g, a, b)
	if !ok {
		return Path{}, false
	}
	return UndirectedBetween(g, from, to)
}

// UndirectedBetween searches the undirected projection of g. Each hop is
// mapped back to a directed edge of g, trying the hop's own orientation
// first.
func UndirectedBetween(g *graph.Graph, from, to int64) (Path, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return Path{}, false
	}
	nodes, ok := g.Undirected().ShortestPath(from, to)
	if !ok {
		return Path{}, false
	}

	edges := make([]graph.EdgeID, 0, len(nodes))
	for i := 0; i+1 < len(nodes); i++ {
		e, found := g.Edge(nodes[i], nodes[i+1])
		if !found {
			e, found = g.Edge(nodes[i+1], nodes[i])
		}
		if !found {
			return Path{}, false
		}
		edges = append(edges, e.ID)
	}
	return Path{Nodes: nodes, Edges: edges}, true
}

func resolvePair(g *graph.Graph, a, b string) (int64, int64, bool) {
	from, ok := graph.FindNode(g, a)
	if !ok {
		return 0, 0, false
	}
	to, ok := graph.FindNode(g, b)
	return from, to, ok
}

// EdgePredicate reports whether id belongs to edges. A nil edges slice
// means no filter and matches every edge; an empty non-nil slice matches
// none.
func EdgePredicate(edges []graph.EdgeID, id graph.EdgeID) bool {
	if edges == nil {
		return true
	}
	return slices.Contains(edges, id)
}

// Highlight is the path highlight state shown by a client. The zero value
// is inactive and highlights every edge; an active highlight restricts to
// the path's edges, even when the path has none.
type Highlight struct {
	active bool
	path   Path
}

// Highlighting returns an active highlight for p.
func Highlighting(p Path) Highlight {
	return Highlight{active: true, path: p}
}

// Active reports whether a path is being highlighted.
func (h Highlight) Active() bool { return h.active }

// Path returns the highlighted path.
func (h Highlight) Path() Path { return h.path }

// Contains reports whether the edge should be drawn highlighted.
func (h Highlight) Contains(id graph.EdgeID) bool {
	if !h.active {
		return true
	}
	return slices.Contains(h.path.Edges, id)
}

// NodeOnPath reports whether node is part of an active highlight. Inactive
// highlights contain every node.
func (h Highlight) NodeOnPath(node int64) bool {
	if !h.active {
		return true
	}
	return slices.Contains(h.path.Nodes, node)
}
