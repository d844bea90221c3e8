// Package markdown converts markdown to HTML for template helpers and content
// pages, and extracts tables of contents from heading structure.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Converter renders markdown with tables, footnotes, definition lists and
// generated heading ids. Safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// New returns a Converter.
func New() *Converter {
	return &Converter{md: goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Footnote, extension.DefinitionList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)}
}

// Convert renders src to HTML with surrounding whitespace trimmed.
func (c *Converter) Convert(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Heading is one entry of a table of contents.
type Heading struct {
	Level    int
	ID       string
	Text     string
	Children []*Heading
}

// Headings returns the heading tree of src. Headings deeper than their
// predecessor nest under it; shallower ones climb back up.
func (c *Converter) Headings(src []byte) []*Heading {
	root := c.md.Parser().Parse(text.NewReader(src))

	var top []*Heading
	var stack []*Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		entry := &Heading{Level: h.Level, Text: nodeText(h, src)}
		if id, found := h.AttributeString("id"); found {
			if b, isBytes := id.([]byte); isBytes {
				entry.ID = string(b)
			}
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= entry.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			top = append(top, entry)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, entry)
		}
		stack = append(stack, entry)
		return gmast.WalkSkipChildren, nil
	})
	return top
}

// TOC renders the heading tree of src as nested lists inside a div.toc.
// A document without headings yields an empty list.
func (c *Converter) TOC(src []byte) string {
	var b strings.Builder
	b.WriteString("<div class=\"toc\">\n")
	writeList(&b, c.Headings(src))
	b.WriteString("</div>")
	return b.String()
}

func writeList(b *strings.Builder, hs []*Heading) {
	b.WriteString("<ul>\n")
	for _, h := range hs {
		fmt.Fprintf(b, "<li><a href=\"#%s\">%s</a>", html.EscapeString(h.ID), html.EscapeString(h.Text))
		if len(h.Children) > 0 {
			b.WriteString("\n")
			writeList(b, h.Children)
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
}

// nodeText concatenates the literal text below n.
func nodeText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
