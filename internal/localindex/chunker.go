package localindex

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxChunkRunes = 700 // Max runes per chunk (targets ~450 tokens for 512-token embedding models)

// Chunk is a passage of a document stored and embedded as one vector point.
type Chunk struct {
	Index       int    // Position within the document (starts at 0)
	HeadingPath string // Format: "# Part I > ## Chapter V"; empty for plain text
	Text        string
}

// Chunker splits documents into chunks. Markdown is split along its heading
// hierarchy; plain text is packed paragraph by paragraph.
type Chunker struct {
	markdown goldmark.Markdown
}

// NewChunker creates a new Chunker.
func NewChunker() *Chunker {
	return &Chunker{markdown: goldmark.New()}
}

// Split chunks content according to the filename's extension.
func (c *Chunker) Split(filename string, content []byte) []Chunk {
	var sections []section
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		sections = c.markdownSections(content)
	default:
		sections = []section{{paragraphs: splitParagraphs(string(content))}}
	}

	var chunks []Chunk
	for _, s := range sections {
		for _, body := range pack(s.paragraphs) {
			chunks = append(chunks, Chunk{
				Index:       len(chunks),
				HeadingPath: s.headingPath,
				Text:        body,
			})
		}
	}
	return chunks
}

// section is a run of paragraphs under one heading path.
type section struct {
	headingPath string
	paragraphs  []string
}

type heading struct {
	level int
	text  string
}

// markdownSections walks the top-level blocks of a markdown document,
// starting a new section at every heading.
func (c *Chunker) markdownSections(content []byte) []section {
	doc := c.markdown.Parser().Parse(text.NewReader(content))

	var (
		sections = []section{{}}
		stack    []heading
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: h.Level, text: blockText(h, content)})
			sections = append(sections, section{headingPath: headingPath(stack)})
			continue
		}

		body := blockText(n, content)
		if body == "" {
			continue
		}
		current := &sections[len(sections)-1]
		current.paragraphs = append(current.paragraphs, body)
	}
	return sections
}

// headingPath formats a heading stack as "# Heading1 > ## Heading2".
func headingPath(stack []heading) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = fmt.Sprintf("%s %s", strings.Repeat("#", h.level), h.text)
	}
	return strings.Join(parts, " > ")
}

// blockText returns the source lines of every leaf block under n.
// Lines must only be read from block nodes; inline nodes panic.
func blockText(n ast.Node, content []byte) string {
	var lines []string
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		segments := node.Lines()
		if segments == nil || segments.Len() == 0 {
			return ast.WalkContinue, nil
		}
		for i := 0; i < segments.Len(); i++ {
			seg := segments.At(i)
			lines = append(lines, strings.TrimRight(string(seg.Value(content)), "\r\n"))
		}
		return ast.WalkSkipChildren, nil
	})
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitParagraphs splits plain text on blank lines.
func splitParagraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var paragraphs []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// pack joins consecutive paragraphs into bodies of at most maxChunkRunes.
// Oversized paragraphs are split on sentence boundaries.
func pack(paragraphs []string) []string {
	var (
		bodies  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			bodies = append(bodies, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		for _, piece := range splitLong(p) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+2+utf8.RuneCountInString(piece) > maxChunkRunes {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()
	return bodies
}

// splitLong splits a paragraph longer than maxChunkRunes, preferring line
// then sentence boundaries and falling back to a hard split.
func splitLong(p string) []string {
	runes := []rune(p)
	if len(runes) <= maxChunkRunes {
		return []string{p}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := start + maxChunkRunes
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		window := string(runes[start:end])
		cut := end
		if i := strings.LastIndex(window, "\n"); i > 0 {
			cut = start + utf8.RuneCountInString(window[:i]) + 1
		} else if i := strings.LastIndex(window, ". "); i > 0 {
			cut = start + utf8.RuneCountInString(window[:i]) + 2
		}

		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			pieces = append(pieces, piece)
		}
		start = cut
	}
	return pieces
}
