package api

import (
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/graphservice"
)

// GraphResponse is the current snapshot.
type GraphResponse struct {
	Generation uint64       `json:"generation" example:"3" validate:"required"`
	Nodes      []graph.Node `json:"nodes" validate:"required"`
	Edges      []graph.Edge `json:"edges" validate:"required"`
}

// StatsResponse describes the current snapshot (aliased from the domain layer).
type StatsResponse = graphservice.Stats

// SimilarityResponse lists the nodes related to one node (aliased from the domain layer).
type SimilarityResponse = graphservice.Ranking

// PathResponse is a found path. Labels follow Nodes.
type PathResponse struct {
	Mode string `json:"mode" example:"directed" validate:"required"`
	graphservice.Route
}

// ColorsResponse maps every node id to its diffused colour.
type ColorsResponse struct {
	Colors map[int64]string `json:"colors" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []graph.Node `json:"results" validate:"required"`
}

// FilterResponse lists the visible node ids.
type FilterResponse struct {
	Term    string  `json:"term" example:"golang"`
	Depth   int     `json:"depth" example:"2"`
	Visible []int64 `json:"visible" validate:"required"`
}
