package index

import (
	"path"
	"sort"
	"strings"

	"github.com/starford/linkgraph/internal/parser"
)

// sourceFile is one parsed page file.
type sourceFile struct {
	Path string
	Doc  *parser.Document
}

type pageRow struct {
	ID       int64
	Name     string
	Lower    string
	Path     string // empty for placeholder pages
	Journal  bool
	Hide     bool
	Icon     string
	PageIcon string
	Aliases  []string
	doc      *parser.Document
}

type blockRow struct {
	ID       int64
	PageID   int64
	Position int
	ParentID int64 // 0 for top-level blocks
	Anchor   string
	Content  string
	Refs     []int64
	PathRefs []int64
}

// vault is the fully resolved content of a vault, ready to be written.
type vault struct {
	Pages  []pageRow
	Blocks []blockRow
	// Duplicates lists files skipped because another file already claimed
	// the same page name.
	Duplicates []string
}

// PageName returns the page name of a file: its title property, else its
// file name without extension.
func PageName(file string, doc *parser.Document) string {
	if doc != nil && doc.Properties.Title != "" {
		return doc.Properties.Title
	}
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}

func isJournalPath(file, journalsDir string) bool {
	dir := strings.Trim(journalsDir, "/")
	return dir != "" && strings.HasPrefix(file, dir+"/")
}

// resolveVault assigns ids and resolves references. Pages get ids 1..P in
// case-folded name order; blocks follow in (page, position) order.
// Names that are linked or used as aliases but have no file become
// placeholder pages.
func resolveVault(files []sourceFile, journalsDir string) *vault {
	v := &vault{}
	byLower := make(map[string]*pageRow)

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	var accepted []sourceFile
	for _, f := range files {
		name := PageName(f.Path, f.Doc)
		lower := strings.ToLower(name)
		if _, ok := byLower[lower]; ok {
			v.Duplicates = append(v.Duplicates, f.Path)
			continue
		}
		p := f.Doc.Properties
		byLower[lower] = &pageRow{
			Name:     name,
			Lower:    lower,
			Path:     f.Path,
			Journal:  p.Journal || isJournalPath(f.Path, journalsDir),
			Hide:     p.GraphHide,
			Icon:     p.Icon,
			PageIcon: p.PageIcon,
			Aliases:  p.Alias,
			doc:      f.Doc,
		}
		accepted = append(accepted, f)
	}

	placeholder := func(name string) {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			return
		}
		if _, ok := byLower[lower]; !ok {
			byLower[lower] = &pageRow{Name: strings.TrimSpace(name), Lower: lower}
		}
	}
	for _, f := range accepted {
		for _, a := range f.Doc.Properties.Alias {
			placeholder(a)
		}
		for _, b := range f.Doc.Blocks {
			for _, r := range b.Refs {
				if r.Kind == parser.RefPage {
					placeholder(r.Target)
				}
			}
		}
	}

	lowers := make([]string, 0, len(byLower))
	for l := range byLower {
		lowers = append(lowers, l)
	}
	sort.Strings(lowers)
	for i, l := range lowers {
		p := byLower[l]
		p.ID = int64(i + 1)
		v.Pages = append(v.Pages, *p)
	}

	// First pass: block ids and anchors.
	nextID := int64(len(v.Pages)) + 1
	anchors := make(map[string]int64)
	type pending struct {
		page  *pageRow
		first int64
	}
	var withBlocks []pending
	for i := range v.Pages {
		p := &v.Pages[i]
		if p.doc == nil || len(p.doc.Blocks) == 0 {
			continue
		}
		withBlocks = append(withBlocks, pending{page: p, first: nextID})
		for _, b := range p.doc.Blocks {
			if b.Anchor != "" {
				if _, ok := anchors[b.Anchor]; !ok {
					anchors[b.Anchor] = nextID
				}
			}
			nextID++
		}
	}

	// Second pass: references and path references.
	for _, w := range withBlocks {
		p := w.page
		start := len(v.Blocks)
		for pos, b := range p.doc.Blocks {
			row := blockRow{
				ID:       w.first + int64(pos),
				PageID:   p.ID,
				Position: pos,
				Anchor:   b.Anchor,
				Content:  b.Content,
			}
			var pageRefs []int64
			for _, r := range b.Refs {
				switch r.Kind {
				case parser.RefPage:
					if target, ok := byLower[strings.ToLower(strings.TrimSpace(r.Target))]; ok {
						row.Refs = appendUnique(row.Refs, target.ID)
						pageRefs = appendUnique(pageRefs, target.ID)
					}
				case parser.RefBlock:
					if id, ok := anchors[r.Target]; ok {
						row.Refs = appendUnique(row.Refs, id)
					}
				}
			}

			var pathRefs []int64
			if b.Parent >= 0 {
				parent := v.Blocks[start+b.Parent]
				row.ParentID = parent.ID
				pathRefs = append(pathRefs, parent.PathRefs...)
			} else {
				pathRefs = []int64{p.ID}
			}
			for _, id := range pageRefs {
				pathRefs = appendUnique(pathRefs, id)
			}
			row.PathRefs = pathRefs
			v.Blocks = append(v.Blocks, row)
		}
	}
	for i := range v.Pages {
		v.Pages[i].doc = nil
	}
	return v
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
