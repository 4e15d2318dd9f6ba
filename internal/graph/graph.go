// Package graph holds the page graph snapshot and the builder that derives it
// from page and block records.
//
// A Graph is built once and then only read. Nodes and edges keep their
// insertion order, and every lookup that can match more than one element
// resolves in that order.
package graph

// NodeType is the visual hint attached to a node.
type NodeType string

const (
	NodeCircle NodeType = "circle"
	NodeImage  NodeType = "image"
)

// Node is a canonical visible page.
type Node struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	// Aliases are upper-cased for matching; RawAliases keep the original case.
	Aliases    []string `json:"aliases,omitempty"`
	RawAliases []string `json:"raw_aliases,omitempty"`
	Type       NodeType `json:"type"`
	Image      string   `json:"image,omitempty"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
}

// EdgeID identifies an edge within one snapshot.
type EdgeID int

// Edge is a directed, weighted page-to-page relation.
type Edge struct {
	ID     EdgeID `json:"id"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Weight int    `json:"weight"`
}

// Graph is a directed graph without parallel edges. Self-loops are allowed.
type Graph struct {
	nodes []*Node
	byID  map[int64]*Node
	edges []*Edge
	pairs map[[2]int64]EdgeID
	out   map[int64][]EdgeID
	in    map[int64][]EdgeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byID:  make(map[int64]*Node),
		pairs: make(map[[2]int64]EdgeID),
		out:   make(map[int64][]EdgeID),
		in:    make(map[int64][]EdgeID),
	}
}

// AddNode inserts n. It reports false if a node with the same id exists.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.byID[n.ID]; ok {
		return false
	}
	if n.Type == "" {
		n.Type = NodeCircle
	}
	node := n
	g.nodes = append(g.nodes, &node)
	g.byID[n.ID] = &node
	return true
}

// AddReference records one reference from source to target. The first
// reference creates an edge of weight 1, later ones increment it. It reports
// false, and changes nothing, when either endpoint is not a node.
func (g *Graph) AddReference(source, target int64) (EdgeID, bool) {
	if !g.HasNode(source) || !g.HasNode(target) {
		return 0, false
	}
	key := [2]int64{source, target}
	if id, ok := g.pairs[key]; ok {
		g.edges[id].Weight++
		return id, true
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, &Edge{ID: id, Source: source, Target: target, Weight: 1})
	g.pairs[key] = id
	g.out[source] = append(g.out[source], id)
	g.in[target] = append(g.in[target], id)
	return id, true
}

// Order returns the number of nodes.
func (g *Graph) Order() int { return len(g.nodes) }

// Size returns the number of edges.
func (g *Graph) Size() int { return len(g.edges) }

// HasNode reports whether id is a node.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.byID[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = *n
	}
	return out
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []int64 {
	out := make([]int64, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.ID
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
	}
	return out
}

// Edge returns the directed edge from source to target.
func (g *Graph) Edge(source, target int64) (Edge, bool) {
	id, ok := g.pairs[[2]int64{source, target}]
	if !ok {
		return Edge{}, false
	}
	return *g.edges[id], true
}

// EdgeByID returns the edge with the given id.
func (g *Graph) EdgeByID(id EdgeID) (Edge, bool) {
	if id < 0 || int(id) >= len(g.edges) {
		return Edge{}, false
	}
	return *g.edges[id], true
}

// OutNeighbors returns the targets of edges leaving id.
func (g *Graph) OutNeighbors(id int64) []int64 {
	ids := g.out[id]
	out := make([]int64, len(ids))
	for i, eid := range ids {
		out[i] = g.edges[eid].Target
	}
	return out
}

// InNeighbors returns the sources of edges entering id.
func (g *Graph) InNeighbors(id int64) []int64 {
	ids := g.in[id]
	out := make([]int64, len(ids))
	for i, eid := range ids {
		out[i] = g.edges[eid].Source
	}
	return out
}

// OutDegree returns the number of distinct out-neighbours of id.
func (g *Graph) OutDegree(id int64) int { return len(g.out[id]) }

// Neighbors returns every node adjacent to id regardless of direction,
// out-neighbours first, without duplicates.
func (g *Graph) Neighbors(id int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, n := range g.OutNeighbors(id) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, n := range g.InNeighbors(id) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
