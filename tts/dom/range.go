// Package dom locates spoken words inside rendered HTML and highlights them.
package dom

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrInvalidRange is returned when a range does not point at text
	// nodes or its offsets fall outside them.
	ErrInvalidRange = errors.New("invalid DOM range")
	// ErrDetached is returned when a range's nodes are no longer attached
	// to a parent.
	ErrDetached = errors.New("DOM range is detached")
)

// Range is a static range between two points inside text nodes. Offsets are
// byte offsets into the nodes' Data.
type Range struct {
	StartNode   *html.Node
	StartOffset int
	EndNode     *html.Node
	EndOffset   int
}

// Segment is the part of a single text node covered by a range.
type Segment struct {
	Node  *html.Node
	Start int
	End   int
}

// Text returns the text covered by the segment.
func (s Segment) Text() string {
	return s.Node.Data[s.Start:s.End]
}

// Collapsed reports whether the range is empty.
func (r Range) Collapsed() bool {
	return r.StartNode == r.EndNode && r.StartOffset == r.EndOffset
}

// Validate checks that both boundary points are inside text nodes.
func (r Range) Validate() error {
	if r.StartNode == nil || r.EndNode == nil ||
		r.StartNode.Type != html.TextNode || r.EndNode.Type != html.TextNode {
		return ErrInvalidRange
	}
	if r.StartOffset < 0 || r.StartOffset > len(r.StartNode.Data) ||
		r.EndOffset < 0 || r.EndOffset > len(r.EndNode.Data) {
		return ErrInvalidRange
	}
	if r.StartNode == r.EndNode && r.EndOffset < r.StartOffset {
		return ErrInvalidRange
	}
	if r.StartNode.Parent == nil || r.EndNode.Parent == nil {
		return ErrDetached
	}
	return nil
}

// Segments splits the range into per-text-node pieces in document order.
// Empty pieces are omitted.
func (r Range) Segments() ([]Segment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.StartNode == r.EndNode {
		if r.StartOffset == r.EndOffset {
			return nil, nil
		}
		return []Segment{{r.StartNode, r.StartOffset, r.EndOffset}}, nil
	}

	var segs []Segment
	if r.StartOffset < len(r.StartNode.Data) {
		segs = append(segs, Segment{r.StartNode, r.StartOffset, len(r.StartNode.Data)})
	}
	for n := next(r.StartNode); n != r.EndNode; n = next(n) {
		if n == nil {
			return nil, ErrInvalidRange
		}
		if n.Type == html.TextNode && n.Data != "" && !skipped(n) {
			segs = append(segs, Segment{n, 0, len(n.Data)})
		}
	}
	if r.EndOffset > 0 {
		segs = append(segs, Segment{r.EndNode, 0, r.EndOffset})
	}
	return segs, nil
}

// Text returns the text covered by the range.
func (r Range) Text() string {
	segs, err := r.Segments()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text())
	}
	return b.String()
}

// next returns the node following n in document order.
func next(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// skipped reports whether a text node lives inside an element whose text is
// never displayed.
func skipped(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			switch p.Data {
			case "script", "style", "template", "head":
				return true
			}
		}
	}
	return false
}

// TextNodes returns the displayed text nodes under root in document order.
func TextNodes(root *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			nodes = append(nodes, n)
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "template", "head":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return nodes
}
