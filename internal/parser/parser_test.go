package parser

import (
	"slices"
	"testing"
)

func pages(refs []Ref) []string {
	var out []string
	for _, r := range refs {
		if r.Kind == RefPage {
			out = append(out, r.Target)
		}
	}
	return out
}

func TestParse_FrontmatterProperties(t *testing.T) {
	input := []byte("---\ntitle: Hello\nalias: [Hi, Hey]\njournal: true\ngraph-hide: false\nicon: \"🌲\"\n---\n- Body\n")
	d, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := d.Properties
	if p.Title != "Hello" || !p.Journal || p.GraphHide || p.Icon != "🌲" {
		t.Errorf("properties = %+v", p)
	}
	if !slices.Equal(p.Alias, []string{"Hi", "Hey"}) {
		t.Errorf("alias = %v, want [Hi Hey]", p.Alias)
	}
	if len(d.Blocks) != 1 || d.Blocks[0].Content != "Body" {
		t.Errorf("blocks = %+v", d.Blocks)
	}
}

func TestParse_PageIcon(t *testing.T) {
	d, err := Parse([]byte("---\npageIcon: \"📘\"\n---\n- x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Properties.PageIcon != "📘" || d.Properties.Icon != "" {
		t.Errorf("frontmatter properties = %+v", d.Properties)
	}

	d, err = Parse([]byte("page-icon:: 🌲\n\n- x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Properties.PageIcon != "🌲" {
		t.Errorf("inline properties = %+v", d.Properties)
	}
}

func TestParse_AliasString(t *testing.T) {
	d, err := Parse([]byte("---\nalias: one, [[Two Words]]\n---\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(d.Properties.Alias, []string{"one", "Two Words"}) {
		t.Errorf("alias = %v", d.Properties.Alias)
	}
}

func TestParse_InlineProperties(t *testing.T) {
	input := []byte("alias:: CSP, Channels\ngraph-hide:: true\ncolor:: red\n\n- first\n")
	d, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(d.Properties.Alias, []string{"CSP", "Channels"}) || !d.Properties.GraphHide {
		t.Errorf("properties = %+v", d.Properties)
	}
	// The unknown property stays behind as a root block.
	if len(d.Blocks) != 2 || d.Blocks[0].Depth != -1 || d.Blocks[1].Content != "first" {
		t.Errorf("blocks = %+v", d.Blocks)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	d, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_Outline(t *testing.T) {
	body := "Intro [[Root]]\n" +
		"- Parent [[A]]\n" +
		"  - Child [[B]]\n" +
		"    continued #c\n" +
		"\t\t- Grandchild\n" +
		"  - Sibling\n" +
		"- Top\n"
	d, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		parent, depth int
		refs          []string
	}{
		{-1, -1, []string{"Root"}},
		{-1, 0, []string{"A"}},
		{1, 1, []string{"B", "c"}},
		{2, 2, nil},
		{1, 1, nil},
		{-1, 0, nil},
	}
	if len(d.Blocks) != len(want) {
		t.Fatalf("blocks = %d, want %d: %+v", len(d.Blocks), len(want), d.Blocks)
	}
	for i, w := range want {
		b := d.Blocks[i]
		if b.Parent != w.parent || b.Depth != w.depth || !slices.Equal(pages(b.Refs), w.refs) {
			t.Errorf("block %d = parent %d depth %d refs %v, want %d %d %v",
				i, b.Parent, b.Depth, pages(b.Refs), w.parent, w.depth, w.refs)
		}
	}
	if d.Blocks[2].Content != "Child [[B]]\n    continued #c" {
		t.Errorf("content = %q", d.Blocks[2].Content)
	}
}

func TestExtractRefs(t *testing.T) {
	refs := extractRefs("See [[Note A]], [[Note B|label]], #tag, #[[multi word]] and ((abc-1)). # heading url.com#frag")
	want := []Ref{
		{RefPage, "Note A"},
		{RefPage, "Note B"},
		{RefPage, "tag"},
		{RefPage, "multi word"},
		{RefBlock, "abc-1"},
	}
	if !slices.Equal(refs, want) {
		t.Errorf("refs = %v, want %v", refs, want)
	}
}

func TestExtractRefs_EmptyTarget(t *testing.T) {
	if refs := extractRefs("see [[ ]] and [[|alias]]"); len(refs) != 0 {
		t.Errorf("expected no refs, got %v", refs)
	}
}

func TestScanBlock_DedupAndAnchors(t *testing.T) {
	refs, anchor := scanBlock([]string{"[[A]] and [[a]] again ^here"})
	if !slices.Equal(pages(refs), []string{"A"}) {
		t.Errorf("refs = %v, want [A]", refs)
	}
	if anchor != "here" {
		t.Errorf("anchor = %q, want here", anchor)
	}

	_, anchor = scanBlock([]string{"text", "id:: 6551c2f0-aaaa"})
	if anchor != "6551c2f0-aaaa" {
		t.Errorf("anchor = %q", anchor)
	}
}

func TestParse_FencedCodeIgnored(t *testing.T) {
	body := "- code\n  ```\n  - not a block [[Nope]]\n  ```\n- after [[Yes]]\n"
	d, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("blocks = %+v", d.Blocks)
	}
	if len(d.Blocks[0].Refs) != 0 || !slices.Equal(pages(d.Blocks[1].Refs), []string{"Yes"}) {
		t.Errorf("refs = %v / %v", d.Blocks[0].Refs, d.Blocks[1].Refs)
	}
}

func TestParse_TagsBecomeRootRefs(t *testing.T) {
	d, err := Parse([]byte("---\ntags:\n  - go\n  - graphs\n---\n- body [[go]]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 || d.Blocks[0].Depth != -1 {
		t.Fatalf("blocks = %+v", d.Blocks)
	}
	if !slices.Equal(pages(d.Blocks[0].Refs), []string{"go", "graphs"}) {
		t.Errorf("root refs = %v", d.Blocks[0].Refs)
	}
	if d.Blocks[1].Parent != -1 {
		t.Errorf("parent = %d, want -1", d.Blocks[1].Parent)
	}
}
