// Package models defines the records exchanged between the page store and the graph core.
package models

import "time"

// Page is a top-level named note as supplied by the store.
type Page struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Journal    bool           `json:"journal"`
	Properties PageProperties `json:"properties"`
}

// PageProperties holds the page-level properties the graph cares about.
type PageProperties struct {
	GraphHide bool     `json:"graph_hide,omitempty"`
	Alias     []string `json:"alias,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	PageIcon  string   `json:"page_icon,omitempty"`
}

// Glyph returns the icon glyph for the page, preferring icon over page-icon.
func (p PageProperties) Glyph() string {
	if p.Icon != "" {
		return p.Icon
	}
	return p.PageIcon
}

// Block is one outline entry of a page together with its references.
//
// Refs are the pages (or blocks) directly referenced by the block. PathRefs
// lists every page reachable from the block's structural context, outer to
// inner: the owning page, the refs of every ancestor block, then Refs.
type Block struct {
	ID       int64   `json:"id"`
	PageID   int64   `json:"page_id"`
	Refs     []int64 `json:"refs"`
	PathRefs []int64 `json:"path_refs,omitempty"`
}

// Reference is a single resolved reference intent produced from a block.
// Shared marks the links between targets that co-occur in the same block.
type Reference struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
	Shared bool  `json:"shared,omitempty"`
}

// FileMetadata is a lightweight description of a vault file.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoCitation is one row of a co-citation query: a block whose path refs
// contain the queried page, and the name of another page in the same path
// refs.
type CoCitation struct {
	BlockID  int64  `json:"block_id"`
	PageName string `json:"page_name"`
}
