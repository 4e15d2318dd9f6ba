package mcpserver

// VaultFormat describes the Markdown conventions the indexer understands,
// so LLM consumers can tell why a page is or is not linked in the graph.
const VaultFormat = `# linkgraph Vault Format

Every ` + "`" + `*.md` + "`" + ` file under the vault root is a page. Files and directories
whose name starts with a dot are ignored.

## Page name and properties

- The page name is the frontmatter ` + "`" + `title` + "`" + `, else the file name without ` + "`" + `.md` + "`" + `.
- Names are unique ignoring case; when two files claim the same name the one
  with the smallest path wins and the other is skipped.
- Properties may be set in YAML frontmatter or as leading ` + "`" + `key:: value` + "`" + ` lines.
  Frontmatter wins when both are present.

` + "```" + `markdown
---
title: Go Concurrency
alias: golang-concurrency, goroutines
tags: [go, patterns]
icon: "🐹"
---
` + "```" + `

| property | effect |
|---|---|
| alias / aliases | other names for the page; links to them count for this page |
| tags | references from the page's root block |
| journal | marks a journal page (also implied by the journals directory) |
| graph-hide | keeps the page out of the graph |
| icon | shown as the node image |

## Outline

The body is an outline. A line starting with ` + "`" + `- ` + "`" + ` opens a block; each level is
indented by two spaces or a tab. Other lines continue the current block.
Text before the first bullet belongs to a root block.

## References

- ` + "`" + `[[Page]]` + "`" + `, ` + "`" + `[[Page|label]]` + "`" + `, ` + "`" + `#tag` + "`" + ` and ` + "`" + `#[[multi word tag]]` + "`" + ` reference pages.
  A missing page is created as a placeholder.
- ` + "`" + `((anchor))` + "`" + ` references a block. Mark a block with a trailing ` + "`" + `^anchor` + "`" + `
  or an ` + "`" + `id:: anchor` + "`" + ` line; the first block using an anchor keeps it.
- References inside fenced code are ignored.

A block's references are attributed to the most specific page in its context
(the nearest ancestor reference), so nested bullets under ` + "`" + `[[Topic]]` + "`" + ` link
Topic to what they mention. Pages mentioned together in a block are linked to
each other.
`
