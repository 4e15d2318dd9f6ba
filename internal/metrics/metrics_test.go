package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBuild(t *testing.T) {
	okBefore := testutil.ToFloat64(graphBuilds.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(graphBuilds.WithLabelValues("error"))
	droppedBefore := testutil.ToFloat64(droppedReferences)

	ObserveBuild(Build{Duration: time.Millisecond, Nodes: 5, Edges: 7, Dropped: 2})
	if got := testutil.ToFloat64(graphNodes); got != 5 {
		t.Errorf("nodes gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(graphEdges); got != 7 {
		t.Errorf("edges gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(droppedReferences) - droppedBefore; got != 2 {
		t.Errorf("dropped delta = %v, want 2", got)
	}

	// A failed build leaves the gauges alone.
	ObserveBuild(Build{Duration: time.Millisecond, Nodes: 99, Err: errors.New("boom")})
	if got := testutil.ToFloat64(graphNodes); got != 5 {
		t.Errorf("nodes gauge after failure = %v, want 5", got)
	}
	if got := testutil.ToFloat64(graphBuilds.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("ok builds delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(graphBuilds.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error builds delta = %v, want 1", got)
	}
}

func TestObserveQuery(t *testing.T) {
	before := testutil.ToFloat64(queryErrors.WithLabelValues("test"))
	ObserveQuery("test", nil)
	ObserveQuery("test", errors.New("bad"))
	if got := testutil.ToFloat64(queryTotal.WithLabelValues("test")); got < 2 {
		t.Errorf("query total = %v, want >= 2", got)
	}
	if got := testutil.ToFloat64(queryErrors.WithLabelValues("test")) - before; got != 1 {
		t.Errorf("query errors delta = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	CacheHit("similar")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "linkgraph_cache_hits_total") {
		t.Error("exposition should include linkgraph collectors")
	}
}
