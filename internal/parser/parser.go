// Package parser turns a Markdown outline page into page properties and
// blocks with their references.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// One alternative per reference form, in priority order: #[[multi word]],
	// [[Page]] / [[Page|label]], ((anchor)), #tag.
	refRe = regexp.MustCompile(`#\[\[([^\]]+)\]\]|\[\[([^\]]+)\]\]|\(\(([^)]+)\)\)|(?:^|\s)#([\p{L}\p{N}_][\p{L}\p{N}_/-]*)`)

	anchorRe   = regexp.MustCompile(`(?:^|\s)\^([A-Za-z0-9_-]+)\s*$`)
	propertyRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)::\s*(.*)$`)
)

// RefKind tells page references from block references.
type RefKind int

const (
	// RefPage targets a page by name.
	RefPage RefKind = iota
	// RefBlock targets a block by anchor.
	RefBlock
)

// Ref is one reference found in a block.
type Ref struct {
	Kind RefKind
	// Target is a page name or a block anchor.
	Target string
}

// Block is one outline entry.
type Block struct {
	// Parent is the index of the enclosing block in Document.Blocks, or -1.
	Parent  int
	Depth   int
	Content string
	Anchor  string
	Refs    []Ref
}

// Properties are the page-level settings read from frontmatter or from
// leading "key:: value" lines.
type Properties struct {
	Title     string
	Alias     []string
	Tags      []string
	Journal   bool
	GraphHide bool
	Icon      string
	PageIcon  string
}

// Document is a parsed page.
type Document struct {
	Frontmatter map[string]any
	Properties  Properties
	Blocks      []Block
}

// Parse splits data into frontmatter and an outline body and extracts the
// blocks. Invalid frontmatter is treated as body.
func Parse(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{Frontmatter: fm}
	props, body := leadingProperties(body)
	doc.Properties = mergeProperties(propertiesFromFrontmatter(fm), props)
	doc.Blocks = parseOutline(body)

	if len(doc.Properties.Tags) > 0 {
		refs := make([]Ref, 0, len(doc.Properties.Tags))
		for _, t := range doc.Properties.Tags {
			refs = append(refs, Ref{Kind: RefPage, Target: t})
		}
		if len(doc.Blocks) == 0 || doc.Blocks[0].Depth >= 0 {
			doc.Blocks = append([]Block{{Parent: -1, Depth: -1}}, shiftParents(doc.Blocks)...)
		}
		doc.Blocks[0].Refs = dedupRefs(append(refs, doc.Blocks[0].Refs...))
	}
	return doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}
	return fm, body, nil
}

func propertiesFromFrontmatter(fm map[string]any) Properties {
	var p Properties
	if fm == nil {
		return p
	}
	p.Title = stringValue(fm["title"])
	p.Alias = listValue(fm["alias"])
	if len(p.Alias) == 0 {
		p.Alias = listValue(fm["aliases"])
	}
	p.Tags = listValue(fm["tags"])
	p.Journal = boolValue(fm["journal"])
	p.GraphHide = boolValue(fm["graph-hide"])
	p.Icon = stringValue(fm["icon"])
	p.PageIcon = stringValue(fm["page-icon"])
	if p.PageIcon == "" {
		p.PageIcon = stringValue(fm["pageIcon"])
	}
	return p
}

// leadingProperties consumes "key:: value" lines at the top of body. Only
// the keys Properties knows about are kept; the rest stay in the body.
func leadingProperties(body string) (Properties, string) {
	var p Properties
	lines := strings.Split(body, "\n")
	i := 0
	var kept []string
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		m := propertyRe.FindStringSubmatch(line)
		if m == nil {
			break
		}
		key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch key {
		case "title":
			p.Title = val
		case "alias", "aliases":
			p.Alias = splitList(val)
		case "tags":
			p.Tags = splitList(val)
		case "journal":
			p.Journal = parseBool(val)
		case "graph-hide":
			p.GraphHide = parseBool(val)
		case "icon":
			p.Icon = val
		case "page-icon", "pageicon":
			p.PageIcon = val
		default:
			kept = append(kept, lines[i])
		}
	}
	if i == 0 {
		return p, body
	}
	return p, strings.Join(append(kept, lines[i:]...), "\n")
}

// mergeProperties fills unset fields of fm from inline.
func mergeProperties(fm, inline Properties) Properties {
	out := fm
	if out.Title == "" {
		out.Title = inline.Title
	}
	if len(out.Alias) == 0 {
		out.Alias = inline.Alias
	}
	if len(out.Tags) == 0 {
		out.Tags = inline.Tags
	}
	out.Journal = out.Journal || inline.Journal
	out.GraphHide = out.GraphHide || inline.GraphHide
	if out.Icon == "" {
		out.Icon = inline.Icon
	}
	if out.PageIcon == "" {
		out.PageIcon = inline.PageIcon
	}
	return out
}

// parseOutline reads body as a bullet outline. A line starting with "- "
// (after indentation of two spaces or one tab per level) opens a block;
// any other line continues the current block. Text before the first
// bullet forms a root block at depth -1.
func parseOutline(body string) []Block {
	var (
		blocks  []Block
		content []string
		stack   []int // open block indexes, outermost first
		inFence bool
	)

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		b := &blocks[len(blocks)-1]
		b.Content = strings.TrimSpace(strings.Join(content, "\n"))
		b.Refs, b.Anchor = scanBlock(content)
		content = content[:0]
	}

	for _, raw := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		depth, rest := indentation(raw)
		trimmed := strings.TrimSpace(rest)
		isBullet := !inFence && (strings.HasPrefix(rest, "- ") || rest == "-")
		if strings.HasPrefix(strings.TrimPrefix(trimmed, "- "), "```") {
			inFence = !inFence
		}
		if !isBullet {
			if len(blocks) == 0 {
				if trimmed == "" {
					continue
				}
				blocks = append(blocks, Block{Parent: -1, Depth: -1})
			}
			content = append(content, raw)
			continue
		}

		flush()
		for len(stack) > 0 && blocks[stack[len(stack)-1]].Depth >= depth {
			stack = stack[:len(stack)-1]
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		blocks = append(blocks, Block{Parent: parent, Depth: depth})
		stack = append(stack, len(blocks)-1)
		content = append(content, strings.TrimPrefix(strings.TrimPrefix(rest, "-"), " "))
	}
	flush()
	return blocks
}

// indentation returns the outline level of line and the line without its
// leading whitespace.
func indentation(line string) (int, string) {
	depth, spaces := 0, 0
	for i, r := range line {
		switch r {
		case '\t':
			depth++
			spaces = 0
		case ' ':
			spaces++
			if spaces == 2 {
				depth++
				spaces = 0
			}
		default:
			return depth, line[i:]
		}
	}
	return depth, ""
}

// scanBlock extracts the references and the anchor of a block's lines.
// Property lines other than "id::" are skipped, as is fenced code.
func scanBlock(lines []string) ([]Ref, string) {
	var (
		refs    []Ref
		anchor  string
		inFence bool
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := propertyRe.FindStringSubmatch(trimmed); m != nil {
			if strings.EqualFold(m[1], "id") && anchor == "" {
				anchor = strings.TrimSpace(m[2])
			}
			continue
		}
		if m := anchorRe.FindStringSubmatch(trimmed); m != nil && anchor == "" {
			anchor = m[1]
		}
		refs = append(refs, extractRefs(trimmed)...)
	}
	return dedupRefs(refs), anchor
}

func extractRefs(line string) []Ref {
	var refs []Ref
	for _, m := range refRe.FindAllStringSubmatch(line, -1) {
		switch {
		case m[1] != "":
			refs = appendPage(refs, m[1])
		case m[2] != "":
			target := m[2]
			if i := strings.Index(target, "|"); i >= 0 {
				target = target[:i]
			}
			refs = appendPage(refs, target)
		case m[3] != "":
			if a := strings.TrimSpace(m[3]); a != "" {
				refs = append(refs, Ref{Kind: RefBlock, Target: a})
			}
		case m[4] != "":
			refs = appendPage(refs, m[4])
		}
	}
	return refs
}

func appendPage(refs []Ref, name string) []Ref {
	name = strings.TrimSpace(name)
	if name == "" {
		return refs
	}
	return append(refs, Ref{Kind: RefPage, Target: name})
}

// dedupRefs keeps the first occurrence of each reference. Page names
// compare case-insensitively.
func dedupRefs(refs []Ref) []Ref {
	seen := make(map[Ref]struct{}, len(refs))
	out := refs[:0:0]
	for _, r := range refs {
		key := r
		if r.Kind == RefPage {
			key.Target = strings.ToLower(r.Target)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func shiftParents(blocks []Block) []Block {
	for i := range blocks {
		if blocks[i].Parent >= 0 {
			blocks[i].Parent++
		}
	}
	return blocks
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// listValue accepts a YAML list or a comma separated string.
func listValue(v any) []string {
	switch s := v.(type) {
	case string:
		return splitList(s)
	case []any:
		var out []string
		for _, item := range s {
			if str := stringValue(item); str != "" {
				out = append(out, strings.Trim(str, "[]"))
			}
		}
		return out
	}
	return nil
}

func boolValue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return parseBool(b)
	}
	return false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// splitList splits a comma separated value, unwrapping [[...]] and
// dropping a leading # from each item.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "#")
		part = strings.TrimSuffix(strings.TrimPrefix(part, "[["), "]]")
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
