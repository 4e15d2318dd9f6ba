package graphservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/index"
	"github.com/starford/linkgraph/internal/storage"
	"github.com/starford/linkgraph/internal/testutil"
)

// Ids follow case-folded names: Alpha 1, Beta 2, Delta 3, Gamma 4, Lone 5, Solo 6.
// Edges: Alpha->Beta, Beta->Gamma, Beta->Lone, Delta->Alpha, Delta->Gamma.
var fixture = map[string]string{
	"Alpha.md": "- see [[Beta]]\n",
	"Beta.md":  "- see [[Gamma]]\n- and [[Lone]]\n",
	"Gamma.md": "- plain\n",
	"Delta.md": "- [[Alpha]]\n- [[Gamma]]\n",
	"Lone.md":  "- nothing\n",
	"Solo.md":  "- nothing either\n",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type publisher struct {
	mu      sync.Mutex
	updates []uint64
}

func (p *publisher) PublishGraphUpdated(generation uint64, _, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, generation)
}

type env struct {
	svc   *Service
	dir   string
	store storage.Provider
	pub   *publisher
}

func newEnv(t *testing.T, files map[string]string) *env {
	t.Helper()
	dir, store := testutil.TestVault(t, files)
	db := testutil.TestDB(t)
	pub := &publisher{}
	svc, err := New(db, Options{
		Sync: func(ctx context.Context) error {
			_, err := index.Sync(ctx, db, store, index.SyncOptions{}, testLogger())
			return err
		},
		Publisher: pub,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &env{svc: svc, dir: dir, store: store, pub: pub}
}

func loaded(t *testing.T) *env {
	t.Helper()
	e := newEnv(t, fixture)
	if _, err := e.svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return e
}

func TestNoSnapshotBeforeReload(t *testing.T) {
	e := newEnv(t, fixture)
	if _, err := e.svc.Snapshot(); !errors.Is(err, apperr.ErrNoGraph) {
		t.Errorf("Snapshot err = %v, want ErrNoGraph", err)
	}
	if _, err := e.svc.Similar("Alpha"); !errors.Is(err, apperr.ErrNoGraph) {
		t.Errorf("Similar err = %v, want ErrNoGraph", err)
	}
}

func TestReload(t *testing.T) {
	e := loaded(t)
	st, err := e.svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Generation != 1 || st.Nodes != 6 || st.Edges != 5 {
		t.Errorf("stats = %+v, want generation 1, 6 nodes, 5 edges", st)
	}
	if st.Index.Pages != 6 || st.Index.References != 5 {
		t.Errorf("index counts = %+v, want 6 pages and 5 references", st.Index)
	}

	testutil.WriteFile(t, e.dir, "Solo.md", "- back to [[Alpha]]\n")
	if _, err := e.svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, _ = e.svc.Stats(context.Background())
	if st.Generation != 2 || st.Edges != 6 {
		t.Errorf("stats after edit = %+v, want generation 2 with 6 edges", st)
	}
	if !slices.Equal(e.pub.updates, []uint64{1, 2}) {
		t.Errorf("published = %v, want [1 2]", e.pub.updates)
	}
}

func TestReload_FailureKeepsSnapshot(t *testing.T) {
	e := loaded(t)
	boom := errors.New("disk gone")
	e.svc.opts.Sync = func(context.Context) error { return boom }

	if _, err := e.svc.Reload(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Reload err = %v, want %v", err, boom)
	}
	st, err := e.svc.Stats(context.Background())
	if err != nil || st.Generation != 1 {
		t.Errorf("stats = %+v, %v; want generation 1 still served", st, err)
	}
}

func TestResolve(t *testing.T) {
	e := loaded(t)
	for _, ref := range []string{"4", "gamma", " Gamma "} {
		n, err := e.svc.Resolve(ref)
		if err != nil || n.ID != 4 {
			t.Errorf("Resolve(%q) = %+v, %v; want Gamma", ref, n, err)
		}
	}
	if _, err := e.svc.Resolve("Omega"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSimilar(t *testing.T) {
	e := loaded(t)
	rank, err := e.svc.Similar("Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if rank.Node.ID != 1 || rank.Generation != 1 {
		t.Errorf("ranking node = %+v, generation %d", rank.Node, rank.Generation)
	}
	got := rank.Results
	if len(got) != 2 {
		t.Fatalf("similar = %+v, want Gamma and Lone", got)
	}
	if got[0].Label != "Gamma" || got[0].Measure != 2.8854 {
		t.Errorf("first = %+v, want Gamma 2.8854", got[0])
	}
	if got[1].Label != "Lone" || got[1].Measure != 1.4427 {
		t.Errorf("second = %+v, want Lone 1.4427", got[1])
	}

	again, err := e.svc.Similar("1")
	if err != nil || !slices.EqualFunc(got, again.Results, func(a, b Similarity) bool { return a.ID == b.ID && a.Measure == b.Measure }) {
		t.Errorf("cached result = %+v, %v", again, err)
	}
}

func TestCoCited(t *testing.T) {
	e := loaded(t)
	rank, err := e.svc.CoCited(context.Background(), "Gamma")
	if err != nil {
		t.Fatal(err)
	}
	if rank.Node.Label != "Gamma" {
		t.Errorf("ranking node = %+v", rank.Node)
	}
	got := rank.Results
	if len(got) != 2 || got[0].Label != "Beta" || got[1].Label != "Delta" {
		t.Fatalf("cocited = %+v, want Beta then Delta", got)
	}
	for _, s := range got {
		if s.Measure != 10 || s.Count != 1 {
			t.Errorf("%s = %+v, want measure 10 count 1", s.Label, s.Score)
		}
	}
}

func TestPath(t *testing.T) {
	e := loaded(t)
	tests := []struct {
		name       string
		from, to   string
		undirected bool
		want       []int64
		wantErr    error
	}{
		{name: "forward", from: "Alpha", to: "Gamma", want: []int64{1, 2, 4}},
		{name: "by id", from: "1", to: "4", want: []int64{1, 2, 4}},
		{name: "reverse fallback", from: "Gamma", to: "Alpha", want: []int64{1, 2, 4}},
		{name: "undirected", from: "Lone", to: "Gamma", undirected: true, want: []int64{5, 2, 4}},
		{name: "no path", from: "Alpha", to: "Solo", wantErr: apperr.ErrNoPath},
		{name: "unknown", from: "Alpha", to: "Omega", wantErr: apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := e.svc.Path(tt.from, tt.to, tt.undirected)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(p.Nodes, tt.want) {
				t.Errorf("nodes = %v, want %v", p.Nodes, tt.want)
			}
			if len(p.Edges) != len(p.Nodes)-1 {
				t.Errorf("edges = %v for nodes %v", p.Edges, p.Nodes)
			}
			if len(p.Labels) != len(p.Nodes) || p.Generation != 1 {
				t.Errorf("labels = %v, generation %d", p.Labels, p.Generation)
			}
		})
	}
}

func TestColors(t *testing.T) {
	e := loaded(t)
	colors, err := e.svc.Colors([]string{"Alpha"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(colors) != 6 {
		t.Fatalf("colors = %v, want one per node", colors)
	}
	if colors[1] != "#ff0000" {
		t.Errorf("seed colour = %s, want #ff0000", colors[1])
	}
	if colors[6] != "#ffffff" {
		t.Errorf("unreachable colour = %s, want #ffffff", colors[6])
	}
	if colors[2] == "#ffffff" || colors[2] == "#ff0000" {
		t.Errorf("neighbour colour = %s, want a blend", colors[2])
	}

	if _, err := e.svc.Colors(nil, 3); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSearch(t *testing.T) {
	e := loaded(t)
	ctx := context.Background()

	nodes, err := e.svc.Search(ctx, "ta")
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	for _, n := range nodes {
		labels = append(labels, n.Label)
	}
	if !slices.Equal(labels, []string{"Beta", "Delta"}) {
		t.Errorf("labels = %v, want [Beta Delta]", labels)
	}

	nodes, err = e.svc.Search(ctx, "q:SELECT id FROM pages WHERE lower_name = 'solo'")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].ID != 6 {
		t.Errorf("store query = %+v, want Solo", nodes)
	}
}

func TestFilter(t *testing.T) {
	e := loaded(t)
	tests := []struct {
		term  string
		depth int
		want  []int64
	}{
		{"alpha", 0, []int64{1, 6}},
		{"alpha", 1, []int64{1, 2, 3, 6}},
		{"alpha", 2, []int64{1, 2, 3, 4, 5, 6}},
		{"", 0, []int64{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		got, err := e.svc.Filter(tt.term, tt.depth)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Filter(%q, %d) = %v, want %v", tt.term, tt.depth, got, tt.want)
		}
	}
	if _, err := e.svc.Filter("alpha", -1); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
