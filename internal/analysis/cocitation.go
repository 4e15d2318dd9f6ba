package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/models"
)

// CoCitationSource answers co-citation queries for a page name.
type CoCitationSource interface {
	CoCitations(ctx context.Context, name string) ([]models.CoCitation, error)
}

// CoCitationFunc adapts a function to CoCitationSource.
type CoCitationFunc func(ctx context.Context, name string) ([]models.CoCitation, error)

// CoCitations implements CoCitationSource.
func (f CoCitationFunc) CoCitations(ctx context.Context, name string) ([]models.CoCitation, error) {
	return f(ctx, name)
}

// CoCitationScores counts, for every page cited alongside node, how often
// the two share a block context. One query is issued per name of node (its
// label and each raw alias), concurrently. Failed queries are logged and
// count as empty. Tallies are normalised to 0..10 against the highest one.
//
// The error is non-nil only when ctx is done.
func CoCitationScores(ctx context.Context, g *graph.Graph, node int64, src CoCitationSource, logger *slog.Logger) (map[int64]Score, error) {
	results := make(map[int64]Score)
	n, ok := g.Node(node)
	if !ok {
		return results, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	names := append([]string{n.Label}, n.RawAliases...)
	rows := make([][]models.CoCitation, len(names))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		eg.Go(func() error {
			res, err := src.CoCitations(egCtx, strings.ToLower(name))
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("analysis: co-citation query failed",
					slog.String("name", name),
					slog.String("error", err.Error()))
				return nil
			}
			rows[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: co-citation: %w", err)
	}

	index := graph.NodeNameIndex(g)
	counter := make(map[int64]int)
	for _, group := range rows {
		for _, row := range group {
			id, ok := index[strings.ToUpper(row.PageName)]
			if !ok || id == node {
				continue
			}
			counter[id]++
		}
	}

	maxCount := 0
	for _, c := range counter {
		maxCount = max(maxCount, c)
	}
	if maxCount == 0 {
		return results, nil
	}
	for id, c := range counter {
		results[id] = Score{
			Measure: round(10 * float64(c) / float64(maxCount)),
			Count:   c,
		}
	}
	return results, nil
}
