// Package render turns markdown into the DOM shown by the reading view and
// lays rendered DOM and source text out as terminal lines.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgnsrekt/readalong/tts/textmap"
)

// New returns the goldmark instance used for every rendered surface.
func New() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// ToHTML converts markdown to HTML. A leading frontmatter block is not
// rendered.
func ToHTML(source string) ([]byte, error) {
	var buf bytes.Buffer
	if err := New().Convert(maskFrontmatter([]byte(source)), &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Document renders markdown and returns the <body> element of the
// resulting DOM.
func Document(source string) (*html.Node, error) {
	out, err := ToHTML(source)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}
	if body := findElement(doc, atom.Body); body != nil {
		return body, nil
	}
	return nil, fmt.Errorf("parsing rendered HTML: no body element")
}

// Fragment parses an HTML fragment into a detached <div>.
func Fragment(fragment string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML fragment: %w", err)
	}
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		div.AppendChild(n)
	}
	return div, nil
}

// Table is a markdown table found in source text.
type Table struct {
	// Range covers the table's source lines, from the start of the header
	// line to the end of the last row, newline excluded.
	Range textmap.EditorRange
	// HTML is the table rendered on its own.
	HTML string
}

// Tables returns the tables of source in document order.
func Tables(source string) ([]Table, error) {
	src := maskFrontmatter([]byte(source))
	md := New()
	doc := md.Parser().Parse(text.NewReader(src))

	var tables []Table
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != east.KindTable {
			return ast.WalkContinue, nil
		}

		start, end := nodeByteRange(n)
		if start < 0 {
			return ast.WalkSkipChildren, nil
		}

		var buf bytes.Buffer
		if err := md.Renderer().Render(&buf, src, n); err != nil {
			return ast.WalkStop, fmt.Errorf("rendering table: %w", err)
		}

		tables = append(tables, Table{
			Range: textmap.EditorRange{From: lineStart(source, start), To: lineEnd(source, end)},
			HTML:  buf.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// nodeByteRange returns the smallest source span holding every line and
// text segment below n, or -1, -1 when there is none.
func nodeByteRange(n ast.Node) (int, int) {
	start, end := -1, -1
	grow := func(s, e int) {
		if start == -1 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		// Inline nodes don't have Lines() and will panic if called.
		if c.Type() == ast.TypeInline {
			if t, ok := c.(*ast.Text); ok {
				grow(t.Segment.Start, t.Segment.Stop)
			}
			return ast.WalkContinue, nil
		}
		lines := c.Lines()
		for i := range lines.Len() {
			seg := lines.At(i)
			grow(seg.Start, seg.Stop)
		}
		return ast.WalkContinue, nil
	})
	return start, end
}

func lineStart(s string, off int) int {
	off = min(off, len(s))
	return strings.LastIndexByte(s[:off], '\n') + 1
}

func lineEnd(s string, off int) int {
	off = min(off, len(s))
	if i := strings.IndexByte(s[off:], '\n'); i >= 0 {
		return off + i
	}
	return len(s)
}

// maskFrontmatter blanks a leading "---" block so it renders as nothing
// while every other byte keeps its offset.
func maskFrontmatter(src []byte) []byte {
	if !bytes.HasPrefix(src, []byte("---\n")) {
		return src
	}
	end := -1
	for off := 4; off < len(src); {
		nl := bytes.IndexByte(src[off:], '\n')
		line := src[off:]
		if nl >= 0 {
			line = src[off : off+nl]
		}
		if string(bytes.TrimRight(line, " \r")) == "---" {
			end = off + len(line)
			break
		}
		if nl < 0 {
			break
		}
		off += nl + 1
	}
	if end < 0 {
		return src
	}

	out := make([]byte, len(src))
	copy(out, src)
	for i := 0; i < end; i++ {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}
	return out
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
