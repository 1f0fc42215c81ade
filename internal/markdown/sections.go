// Package markdown splits markdown sources into heading-delimited sections.
package markdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the text between one H1/H2 heading and the next.
type Section struct {
	Index      int    // Position in document (0, 1, 2...)
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Text       string // Heading line plus body, trimmed
}

// WithContext returns Text prefixed by the enclosing headings, so a section under
// an H1 keeps its document title when read on its own.
func (s Section) WithContext() string {
	i := strings.LastIndex(s.HeaderPath, " > ")
	if i < 0 {
		return s.Text
	}
	return strings.ReplaceAll(s.HeaderPath[:i], " > ", "\n") + "\n\n" + s.Text
}

// Splitter cuts markdown at H1 and H2 boundaries.
type Splitter struct {
	md goldmark.Markdown
}

// NewSplitter creates a splitter backed by goldmark with auto heading IDs,
// which the TOC inspection relies on.
func NewSplitter() *Splitter {
	return &Splitter{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

type boundary struct {
	start int
	path  string
}

// Split returns the non-blank sections of source in document order. Text before
// the first heading becomes a section with an empty header path; a document with
// no headings is a single section.
func (s *Splitter) Split(source []byte) ([]Section, error) {
	doc := s.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	headings := headingsByID(doc)
	var bounds []boundary
	collectBoundaries(tree.Items, nil, headings, source, &bounds)
	sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].start < bounds[j].start })

	var sections []Section
	add := func(path string, body []byte) {
		t := strings.TrimSpace(string(body))
		if t == "" {
			return
		}
		sections = append(sections, Section{Index: len(sections), HeaderPath: path, Text: t})
	}

	if len(bounds) == 0 {
		add("", source)
		return sections, nil
	}

	add("", source[:bounds[0].start])
	for i, b := range bounds {
		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].start
		}
		add(b.path, source[b.start:end])
	}
	return sections, nil
}

// collectBoundaries walks the TOC tree and records where each heading line starts.
func collectBoundaries(items toc.Items, ancestors []string, headings map[string]*ast.Heading, source []byte, out *[]boundary) {
	for _, item := range items {
		path := append(append([]string(nil), ancestors...), string(item.Title))

		if h, ok := headings[string(item.ID)]; ok && h.Lines().Len() > 0 {
			*out = append(*out, boundary{
				start: lineStart(source, h.Lines().At(0).Start),
				path:  formatHeaderPath(path),
			})
		}

		if len(item.Items) > 0 {
			collectBoundaries(item.Items, path, headings, source, out)
		}
	}
}

// headingsByID indexes H1 and H2 nodes by their auto-generated ID.
func headingsByID(doc ast.Node) map[string]*ast.Heading {
	found := make(map[string]*ast.Heading)
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		if h.Level > 2 {
			return ast.WalkContinue, nil
		}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				found[string(b)] = h
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart moves pos back to the beginning of its line so the heading marker is kept.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}
