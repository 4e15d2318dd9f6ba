// Package metrics declares the Prometheus collectors for graph builds and
// analysis queries, registered on the default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// graphBuilds counts snapshot builds by result.
	graphBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkgraph_graph_builds_total",
		Help: "Total graph snapshot builds by result",
	}, []string{"result"})

	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkgraph_graph_build_duration_seconds",
		Help:    "Graph snapshot build duration in seconds, sync included",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkgraph_graph_nodes",
		Help: "Nodes in the current snapshot",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkgraph_graph_edges",
		Help: "Edges in the current snapshot",
	})

	// droppedReferences counts references whose endpoints are not nodes.
	droppedReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkgraph_dropped_references_total",
		Help: "Total references dropped while building snapshots",
	})

	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkgraph_query_total",
		Help: "Total analysis queries by kind",
	}, []string{"kind"})

	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkgraph_query_errors_total",
		Help: "Total failed analysis queries by kind",
	}, []string{"kind"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkgraph_cache_hits_total",
		Help: "Total analysis cache hits by kind",
	}, []string{"kind"})
)

// Build is the outcome of one reload as seen by the metrics.
type Build struct {
	Duration time.Duration
	Nodes    int
	Edges    int
	Dropped  int
	Err      error
}

// ObserveBuild records a reload. Gauges only move on success so they keep
// describing the snapshot being served.
func ObserveBuild(b Build) {
	graphBuildDuration.Observe(b.Duration.Seconds())
	if b.Err != nil {
		graphBuilds.WithLabelValues("error").Inc()
		return
	}
	graphBuilds.WithLabelValues("ok").Inc()
	graphNodes.Set(float64(b.Nodes))
	graphEdges.Set(float64(b.Edges))
	droppedReferences.Add(float64(b.Dropped))
}

// ObserveQuery counts one analysis query of the given kind.
func ObserveQuery(kind string, err error) {
	queryTotal.WithLabelValues(kind).Inc()
	if err != nil {
		queryErrors.WithLabelValues(kind).Inc()
	}
}

// CacheHit counts an analysis answered from the cache.
func CacheHit(kind string) {
	cacheHits.WithLabelValues(kind).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
