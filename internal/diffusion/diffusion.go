// Package diffusion colours graph nodes by spreading seed colours outward
// along the undirected projection, fading with hop distance.
package diffusion

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/starford/linkgraph/internal/graph"
)

// Palette holds the four seed colours, applied to seeds by position modulo 4.
type Palette [4]colorful.Color

// DefaultPalette is red, green, blue and yellow.
var DefaultPalette = MustPalette("#ff0000", "#008000", "#0000ff", "#ffff00")

// ParsePalette parses four hex colours.
func ParsePalette(hex ...string) (Palette, error) {
	var p Palette
	if len(hex) != len(p) {
		return p, fmt.Errorf("diffusion: palette needs %d colours, got %d", len(p), len(hex))
	}
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return p, fmt.Errorf("diffusion: colour %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

// MustPalette is like ParsePalette but panics on error.
func MustPalette(hex ...string) Palette {
	p, err := ParsePalette(hex...)
	if err != nil {
		panic(err)
	}
	return p
}

var base = colorful.Color{R: 1, G: 1, B: 1}

// LabelPropagation returns a colouring function for g. A seed keeps its own
// palette colour. Any other node starts white and, for each seed in order
// that reaches it within decay hops, is blended in Lab space towards that
// seed's colour by max(1-d/decay, 0). Hop distances are computed once per
// seed, up front.
func LabelPropagation(g *graph.Graph, seeds []int64, palette Palette, decay int) func(node int64) string {
	u := g.Undirected()
	lengths := make([]map[int64]int, len(seeds))
	seedColor := make(map[int64]colorful.Color, len(seeds))
	for i, s := range seeds {
		lengths[i] = u.Lengths(s)
		if _, ok := seedColor[s]; !ok {
			seedColor[s] = palette[i%len(palette)]
		}
	}

	return func(node int64) string {
		if c, ok := seedColor[node]; ok {
			return c.Clamped().Hex()
		}
		color := base
		for i := range seeds {
			d, ok := lengths[i][node]
			if !ok || d == 0 || decay <= 0 {
				continue
			}
			amount := max(1-float64(d)/float64(decay), 0)
			if amount == 0 {
				continue
			}
			color = color.BlendLab(palette[i%len(palette)], amount)
		}
		return color.Clamped().Hex()
	}
}
