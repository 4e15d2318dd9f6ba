// Package analysis scores how related two pages of a graph snapshot are.
//
// Adamic-Adar and co-citation scoring are adapted from the graph-analysis
// plugin by SkepticMystic (https://github.com/SkepticMystic/graph-analysis).
package analysis

import (
	"math"
	"slices"

	"github.com/starford/linkgraph/internal/graph"
)

const decimals = 4

// Score is the relatedness of one node to the queried node.
type Score struct {
	Measure float64 `json:"measure"`
	// Shared lists the common neighbours behind an Adamic-Adar score.
	Shared []int64 `json:"shared,omitempty"`
	// Count is the raw co-citation tally behind a co-citation score.
	Count int `json:"count,omitempty"`
}

func round(v float64) float64 {
	p := math.Pow(10, decimals)
	return math.Round(v*p) / p
}

// AdamicAdar scores every other node of g against node by the neighbours
// they share, ignoring edge direction. Each shared neighbour c contributes
// 1/ln(outDegree(c)): nothing for a sink, an infinite score for out-degree
// one. Nodes without shared neighbours, and nodes whose score is zero or
// not finite, are left out of the result.
func AdamicAdar(g *graph.Graph, node int64) map[int64]Score {
	results := make(map[int64]Score)
	if !g.HasNode(node) {
		return results
	}
	na := g.Neighbors(node)

	for _, to := range g.NodeIDs() {
		if to == node {
			continue
		}
		nb := g.Neighbors(to)
		var shared []int64
		for _, n := range na {
			if slices.Contains(nb, n) {
				shared = append(shared, n)
			}
		}
		if len(shared) == 0 {
			continue
		}

		sum := 0.0
		for _, c := range shared {
			switch deg := g.OutDegree(c); deg {
			case 0:
				// 1/ln(0) is -0.
			case 1:
				sum = math.Inf(1)
			default:
				sum += 1 / math.Log(float64(deg))
			}
			if math.IsInf(sum, 1) {
				break
			}
		}
		measure := round(sum)
		if measure == 0 || math.IsInf(measure, 0) || math.IsNaN(measure) {
			continue
		}
		results[to] = Score{Measure: measure, Shared: shared}
	}
	return results
}
