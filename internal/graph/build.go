package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/references"
)

// Source supplies the raw records a graph is built from.
type Source interface {
	AllPages(ctx context.Context) ([]models.Page, error)
	// BlockReferences returns every block that carries references, grouped
	// by page. The grouping carries no meaning for the builder.
	BlockReferences(ctx context.Context) ([][]models.Block, error)
	references.BlockGetter
}

// Settings controls which pages become nodes.
type Settings struct {
	JournalsEnabled bool
}

// Stats summarises one build.
type Stats struct {
	Pages      int `json:"pages"`
	Aliases    int `json:"aliases"`
	Blocks     int `json:"blocks"`
	References int `json:"references"`
	Dropped    int `json:"dropped"`
}

type buildOptions struct {
	logger *slog.Logger
	rand   *rand.Rand
	stats  *Stats
}

// Option configures Build.
type Option func(*buildOptions)

// WithLogger sets the logger used for degraded fetches.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// WithRand sets the random source used for the initial layout.
func WithRand(r *rand.Rand) Option {
	return func(o *buildOptions) { o.rand = r }
}

// WithStats makes Build fill s with counters about the build.
func WithStats(s *Stats) Option {
	return func(o *buildOptions) { o.stats = s }
}

// Build constructs a graph snapshot from src.
//
// Both bulk fetches finish before any node is created. A failed fetch is
// logged and yields a smaller graph; Build only fails when ctx is done.
// References whose endpoints are not nodes are dropped. Given the same
// records, two builds produce the same nodes and edge weights; only the
// layout coordinates differ.
func Build(ctx context.Context, src Source, settings Settings, opts ...Option) (*Graph, error) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	stats := o.stats
	if stats == nil {
		stats = &Stats{}
	}
	*stats = Stats{}

	pages, err := src.AllPages(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("graph: fetch pages: %w", ctxErr)
		}
		o.logger.Warn("graph: fetch pages failed", slog.String("error", err.Error()))
		pages = nil
	}
	blocks, err := src.BlockReferences(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("graph: fetch block references: %w", ctxErr)
		}
		o.logger.Warn("graph: fetch block references failed", slog.String("error", err.Error()))
		blocks = nil
	}

	aliases := AliasMap(pages)
	pages = RemoveAliases(aliases, pages)
	stats.Pages = len(pages)
	stats.Aliases = len(aliases)

	pageSet := make(map[int64]struct{}, len(pages))
	journals := make(map[int64]struct{})
	for _, p := range pages {
		pageSet[p.ID] = struct{}{}
		if p.Journal {
			journals[p.ID] = struct{}{}
		}
	}

	g := New()
	for _, p := range pages {
		if p.Properties.GraphHide {
			continue
		}
		if p.Journal && !settings.JournalsEnabled {
			continue
		}
		g.AddNode(pageToNode(p))
	}

	for _, group := range blocks {
		for _, block := range group {
			if len(block.Refs) == 0 {
				continue
			}
			stats.Blocks++
			for _, ref := range references.BlockToReferences(settings.JournalsEnabled, journals, block) {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("graph: resolve references: %w", err)
				}
				stats.References++
				source := ref.Source
				if canonical, ok := aliases[source]; ok {
					source = canonical
				}
				target, ok := references.RefToPageRef(ctx, src, aliases, pageSet, ref.Target)
				if !ok {
					stats.Dropped++
					continue
				}
				if _, added := g.AddReference(source, target); !added {
					stats.Dropped++
				}
			}
		}
	}

	for _, n := range g.nodes {
		n.X = o.rand.Float64()
		n.Y = o.rand.Float64()
	}

	o.logger.Debug("graph: built",
		slog.Int("nodes", g.Order()),
		slog.Int("edges", g.Size()),
		slog.Int("dropped", stats.Dropped))
	return g, nil
}

// AliasMap maps every page named by another page's alias property to that
// page. Names are compared case-insensitively and the first page with a
// matching name wins. Aliases are resolved one level only.
func AliasMap(pages []models.Page) map[int64]int64 {
	byName := make(map[string]int64, len(pages))
	for _, p := range pages {
		key := strings.ToUpper(p.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = p.ID
		}
	}
	aliases := make(map[int64]int64)
	for _, p := range pages {
		for _, a := range p.Properties.Alias {
			if id, ok := byName[strings.ToUpper(a)]; ok && id != p.ID {
				aliases[id] = p.ID
			}
		}
	}
	return aliases
}

// RemoveAliases returns pages without the alias targets.
func RemoveAliases(aliases map[int64]int64, pages []models.Page) []models.Page {
	out := make([]models.Page, 0, len(pages))
	for _, p := range pages {
		if _, ok := aliases[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PageAliases returns the page's aliases, upper-cased when upper is set.
func PageAliases(p models.Page, upper bool) []string {
	out := make([]string, 0, len(p.Properties.Alias))
	for _, a := range p.Properties.Alias {
		if upper {
			a = strings.ToUpper(a)
		}
		out = append(out, a)
	}
	return out
}

func pageToNode(p models.Page) Node {
	n := Node{
		ID:         p.ID,
		Label:      p.Name,
		Aliases:    PageAliases(p, true),
		RawAliases: PageAliases(p, false),
		Type:       NodeCircle,
	}
	if glyph := p.Properties.Glyph(); glyph != "" {
		n.Type = NodeImage
		n.Image = iconImage(glyph)
	}
	return n
}

// iconImage renders a glyph as an SVG data URI.
func iconImage(glyph string) string {
	svg := "<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'>" +
		"<text y='1.1em' x='0.2em' font-size='70'>" + glyph + "</text></svg>"
	return "data:image/svg+xml," + url.PathEscape(svg)
}
