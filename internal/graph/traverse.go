package graph

import (
	"container/heap"
	"math"
)

type halfEdge struct {
	to     int64
	weight float64
}

// Undirected is a read-only undirected projection of a Graph. Opposing
// directed edges between the same pair are merged into one undirected edge
// that keeps the weight of the first edge in insertion order.
type Undirected struct {
	adj map[int64][]halfEdge
}

// Undirected builds the undirected projection of g.
func (g *Graph) Undirected() *Undirected {
	u := &Undirected{adj: make(map[int64][]halfEdge, len(g.nodes))}
	seen := make(map[[2]int64]struct{}, len(g.edges))
	for _, e := range g.edges {
		key := [2]int64{min(e.Source, e.Target), max(e.Source, e.Target)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		w := float64(e.Weight)
		u.adj[e.Source] = append(u.adj[e.Source], halfEdge{to: e.Target, weight: w})
		if e.Source != e.Target {
			u.adj[e.Target] = append(u.adj[e.Target], halfEdge{to: e.Source, weight: w})
		}
	}
	return u
}

// Lengths returns the unweighted hop distance from source to every node
// reachable from it, source included at distance 0.
func (u *Undirected) Lengths(source int64) map[int64]int {
	dist := map[int64]int{source: 0}
	queue := []int64{source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range u.adj[v] {
			if _, ok := dist[e.to]; ok {
				continue
			}
			dist[e.to] = dist[v] + 1
			queue = append(queue, e.to)
		}
	}
	return dist
}

// ShortestPath returns the minimum-weight path between source and target
// in the projection.
func (u *Undirected) ShortestPath(source, target int64) ([]int64, bool) {
	next := func(id int64) []halfEdge { return u.adj[id] }
	return bidirectional(source, target, next, next)
}

// ShortestPath returns the minimum-weight directed path from source to
// target, using edge weights as costs.
func (g *Graph) ShortestPath(source, target int64) ([]int64, bool) {
	if !g.HasNode(source) || !g.HasNode(target) {
		return nil, false
	}
	forward := func(id int64) []halfEdge {
		ids := g.out[id]
		out := make([]halfEdge, len(ids))
		for i, eid := range ids {
			e := g.edges[eid]
			out[i] = halfEdge{to: e.Target, weight: float64(e.Weight)}
		}
		return out
	}
	backward := func(id int64) []halfEdge {
		ids := g.in[id]
		out := make([]halfEdge, len(ids))
		for i, eid := range ids {
			e := g.edges[eid]
			out[i] = halfEdge{to: e.Source, weight: float64(e.Weight)}
		}
		return out
	}
	return bidirectional(source, target, forward, backward)
}

type queueItem struct {
	node int64
	dist float64
	seq  int
}

type distQueue []queueItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(queueItem)) }
func (q *distQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// frontier is one direction of a bidirectional Dijkstra search.
type frontier struct {
	dist    map[int64]float64
	pred    map[int64]int64
	settled map[int64]struct{}
	queue   distQueue
	seq     int
}

func newFrontier(start int64) *frontier {
	f := &frontier{
		dist:    map[int64]float64{start: 0},
		pred:    make(map[int64]int64),
		settled: make(map[int64]struct{}),
	}
	f.push(start, 0)
	return f
}

func (f *frontier) push(node int64, dist float64) {
	heap.Push(&f.queue, queueItem{node: node, dist: dist, seq: f.seq})
	f.seq++
}

func (f *frontier) top() float64 {
	if len(f.queue) == 0 {
		return math.Inf(1)
	}
	return f.queue[0].dist
}

func bidirectional(source, target int64, forward, backward func(int64) []halfEdge) ([]int64, bool) {
	if source == target {
		return []int64{source}, true
	}

	fw, bw := newFrontier(source), newFrontier(target)
	best := math.Inf(1)
	var meet int64
	found := false

	for fw.queue.Len() > 0 && bw.queue.Len() > 0 {
		if fw.top()+bw.top() >= best {
			break
		}
		side, other, next := fw, bw, forward
		if bw.top() < fw.top() {
			side, other, next = bw, fw, backward
		}

		item := heap.Pop(&side.queue).(queueItem)
		if _, done := side.settled[item.node]; done {
			continue
		}
		side.settled[item.node] = struct{}{}
		base := side.dist[item.node]

		for _, e := range next(item.node) {
			nd := base + e.weight
			if d, ok := side.dist[e.to]; !ok || nd < d {
				side.dist[e.to] = nd
				side.pred[e.to] = item.node
				side.push(e.to, nd)
			}
			if od, ok := other.dist[e.to]; ok && nd+od < best {
				best = nd + od
				meet = e.to
				found = true
			}
		}
	}
	if !found {
		return nil, false
	}

	var head []int64
	for n := meet; ; {
		head = append(head, n)
		if n == source {
			break
		}
		n = fw.pred[n]
	}
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}
	for n := meet; n != target; {
		n = bw.pred[n]
		head = append(head, n)
	}
	return head, true
}
