package graph

import (
	"slices"
	"strings"
)

// FindNode returns the first node, in insertion order, whose label or
// alias matches name case-insensitively.
func FindNode(g *Graph, name string) (int64, bool) {
	if name == "" {
		return 0, false
	}
	up := strings.ToUpper(name)
	for _, n := range g.nodes {
		if strings.ToUpper(n.Label) == up || slices.Contains(n.Aliases, up) {
			return n.ID, true
		}
	}
	return 0, false
}

// NodeNameIndex maps every upper-cased label and alias to its node. When
// names collide the earliest node keeps the entry, matching FindNode.
func NodeNameIndex(g *Graph) map[string]int64 {
	index := make(map[string]int64, len(g.nodes))
	for _, n := range g.nodes {
		add := func(name string) {
			key := strings.ToUpper(name)
			if _, ok := index[key]; !ok {
				index[key] = n.ID
			}
		}
		add(n.Label)
		for _, a := range n.Aliases {
			add(a)
		}
	}
	return index
}
