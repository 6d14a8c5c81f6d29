package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// HighlightName is the registry key used for the active highlight.
	HighlightName = "tts-highlight"
	// MarkClass is the class of marker elements inserted around
	// highlighted text.
	MarkClass = "tts-highlight"
)

// textRestore remembers the original data of a text node the highlighter
// shortened.
type textRestore struct {
	node *html.Node
	data string
}

// Highlighter applies a single highlight at a time. With a registry it only
// records the range there. Without one it wraps the text in <mark> elements
// and keeps a journal so Clear can put every original text node back
// exactly as it was.
type Highlighter struct {
	registry *Registry

	restores []textRestore
	created  []*html.Node
	active   bool
}

// NewHighlighter creates a highlighter. reg may be nil.
func NewHighlighter(reg *Registry) *Highlighter {
	return &Highlighter{registry: reg}
}

// Apply replaces any current highlight with r and returns the node that
// best represents it on screen.
func (h *Highlighter) Apply(r Range) (*html.Node, error) {
	h.Clear()

	segs, err := r.Segments()
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, ErrInvalidRange
	}

	if h.registry != nil {
		if err := h.registry.Set(HighlightName, r); err != nil {
			return nil, err
		}
		h.active = true
		return segs[0].Node, nil
	}

	h.active = true
	if mark := h.wrap(segs); mark != nil {
		return mark, nil
	}
	return h.splitWrap(segs), nil
}

// Clear removes the current highlight.
func (h *Highlighter) Clear() {
	if !h.active {
		return
	}
	h.active = false

	if h.registry != nil {
		h.registry.Delete(HighlightName)
	}
	for i := len(h.created) - 1; i >= 0; i-- {
		if n := h.created[i]; n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	for i := len(h.restores) - 1; i >= 0; i-- {
		h.restores[i].node.Data = h.restores[i].data
	}
	h.created = h.created[:0]
	h.restores = h.restores[:0]
}

// Active reports whether a highlight is applied.
func (h *Highlighter) Active() bool {
	return h.active
}

// wrap puts the whole range into one marker element. It only works when
// every covered node is a text node directly under the same parent;
// otherwise it returns nil and leaves the document untouched.
func (h *Highlighter) wrap(segs []Segment) *html.Node {
	parent := segs[0].Node.Parent
	for i, s := range segs {
		if s.Node.Parent != parent {
			return nil
		}
		if i > 0 && segs[i-1].Node.NextSibling != s.Node {
			return nil
		}
	}

	first, last := segs[0], segs[len(segs)-1]
	var text string
	for _, s := range segs {
		text += s.Text()
	}
	tail := last.Node.Data[last.End:]

	for _, s := range segs {
		h.restores = append(h.restores, textRestore{s.Node, s.Node.Data})
	}
	for _, s := range segs[1:] {
		s.Node.Data = ""
	}
	first.Node.Data = first.Node.Data[:first.Start]

	mark := h.insertMark(last.Node, text)
	if tail != "" {
		h.insertText(mark, tail)
	}
	return mark
}

// splitWrap wraps every segment in its own marker element and returns the
// first one.
func (h *Highlighter) splitWrap(segs []Segment) *html.Node {
	var first *html.Node
	for _, s := range segs {
		orig := s.Node.Data
		h.restores = append(h.restores, textRestore{s.Node, orig})

		s.Node.Data = orig[:s.Start]
		mark := h.insertMark(s.Node, orig[s.Start:s.End])
		if tail := orig[s.End:]; tail != "" {
			h.insertText(mark, tail)
		}
		if first == nil {
			first = mark
		}
	}
	return first
}

// insertMark inserts <mark class="tts-highlight">text</mark> after ref.
func (h *Highlighter) insertMark(ref *html.Node, text string) *html.Node {
	mark := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr:     []html.Attribute{{Key: "class", Val: MarkClass}},
	}
	mark.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	insertAfter(ref, mark)
	h.created = append(h.created, mark)
	return mark
}

// insertText inserts a text node after ref.
func (h *Highlighter) insertText(ref *html.Node, text string) {
	n := &html.Node{Type: html.TextNode, Data: text}
	insertAfter(ref, n)
	h.created = append(h.created, n)
}

func insertAfter(ref, n *html.Node) {
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// IsMark reports whether n is a marker element inserted by a Highlighter.
func IsMark(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.Mark {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" && a.Val == MarkClass {
			return true
		}
	}
	return false
}
