// Package references turns raw block records into page-to-page reference intents.
package references

import (
	"context"
	"slices"

	"github.com/starford/linkgraph/internal/models"
)

// BlockGetter fetches a single block by id. It returns (nil, nil) when the
// id is not a known block.
type BlockGetter interface {
	Block(ctx context.Context, id int64) (*models.Block, error)
}

// BlockGetterFunc adapts a function to BlockGetter.
type BlockGetterFunc func(ctx context.Context, id int64) (*models.Block, error)

// Block implements BlockGetter.
func (f BlockGetterFunc) Block(ctx context.Context, id int64) (*models.Block, error) {
	return f(ctx, id)
}

// BlockToReferences computes the references contributed by a single block.
//
// The source of every direct reference is the most specific entry of the
// block's path refs that is neither a direct target, the block's own page,
// nor (when journals are disabled) a journal page. Without such an entry the
// block's page is the source. In addition every ordered pair of distinct
// targets yields a shared reference between the two targets.
func BlockToReferences(journalsEnabled bool, journals map[int64]struct{}, block models.Block) []models.Reference {
	targets := block.Refs
	if len(targets) == 0 {
		return nil
	}

	source := block.PageID
	for i := len(block.PathRefs) - 1; i >= 0; i-- {
		ref := block.PathRefs[i]
		if ref == block.PageID || slices.Contains(targets, ref) {
			continue
		}
		if _, isJournal := journals[ref]; isJournal && !journalsEnabled {
			continue
		}
		source = ref
		break
	}

	out := make([]models.Reference, 0, len(targets)*len(targets))
	for _, target := range targets {
		out = append(out, models.Reference{Source: source, Target: target})
	}
	for i, from := range targets {
		for j, to := range targets {
			if i == j {
				continue
			}
			out = append(out, models.Reference{Source: from, Target: to, Shared: true})
		}
	}
	return out
}

// RefToPageRef resolves ref to a canonical page id.
//
// A ref naming a page in pages is returned unchanged, an alias page maps to
// its canonical page, and anything else is looked up as a block whose page
// (alias-resolved) is returned. ok is false when the ref cannot be resolved
// or the lookup fails.
func RefToPageRef(ctx context.Context, blocks BlockGetter, aliases map[int64]int64, pages map[int64]struct{}, ref int64) (int64, bool) {
	if _, ok := pages[ref]; ok {
		return ref, true
	}
	if canonical, ok := aliases[ref]; ok {
		return canonical, true
	}
	if blocks == nil {
		return 0, false
	}
	block, err := blocks.Block(ctx, ref)
	if err != nil || block == nil || block.PageID == 0 {
		return 0, false
	}
	if canonical, ok := aliases[block.PageID]; ok {
		return canonical, true
	}
	return block.PageID, true
}
