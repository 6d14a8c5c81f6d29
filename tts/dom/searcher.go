package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Backtrack is how far before the cursor a failed search is retried.
const Backtrack = 20

// textNodeEntry records where a text node's data begins in the flattened
// buffer.
type textNodeEntry struct {
	node  *html.Node
	start int
}

// Searcher finds words in the text of a container in reading order. The
// cursor only moves forward, so a repeated word resolves to its next
// occurrence on every call.
type Searcher struct {
	container *html.Node
	entries   []textNodeEntry
	buf       string
	cursor    int

	hl *Highlighter
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithRegistry makes the searcher highlight through a registry instead of
// modifying the document.
func WithRegistry(reg *Registry) Option {
	return func(s *Searcher) {
		s.hl = NewHighlighter(reg)
	}
}

// NewSearcher creates a searcher with no index.
func NewSearcher(opts ...Option) *Searcher {
	s := &Searcher{hl: NewHighlighter(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare indexes the text nodes of container and resets the cursor. Any
// highlight applied by the searcher is removed first so the index sees the
// original text.
func (s *Searcher) Prepare(container *html.Node) {
	s.hl.Clear()

	s.container = container
	s.entries = s.entries[:0]
	s.cursor = 0

	var b strings.Builder
	for _, n := range TextNodes(container) {
		s.entries = append(s.entries, textNodeEntry{node: n, start: b.Len()})
		b.WriteString(n.Data)
	}
	s.buf = b.String()
}

// Find locates the next occurrence of word in container at or after the
// cursor, retrying once from Backtrack bytes before it. A container other
// than the indexed one is indexed first. The current highlight is removed
// so the returned range points into the original text nodes.
func (s *Searcher) Find(container *html.Node, word string) (Range, bool) {
	if word == "" || container == nil {
		return Range{}, false
	}
	if container != s.container {
		s.Prepare(container)
	}
	s.hl.Clear()

	idx := strings.Index(s.buf[s.cursor:], word)
	if idx >= 0 {
		idx += s.cursor
	} else {
		from := max(0, s.cursor-Backtrack)
		if idx = strings.Index(s.buf[from:], word); idx < 0 {
			return Range{}, false
		}
		idx += from
	}

	end := idx + len(word)
	s.cursor = max(s.cursor, end)
	return s.rangeAt(idx, end)
}

// rangeAt converts the buffer span [from, to) to a DOM range.
func (s *Searcher) rangeAt(from, to int) (Range, bool) {
	first := s.entryAt(from)
	last := s.entryAt(to - 1)
	if first < 0 || last < 0 {
		return Range{}, false
	}
	start, end := s.entries[first], s.entries[last]
	return Range{
		StartNode:   start.node,
		StartOffset: from - start.start,
		EndNode:     end.node,
		EndOffset:   to - end.start,
	}, true
}

// entryAt returns the index of the entry holding buffer offset off.
func (s *Searcher) entryAt(off int) int {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].start > off
	}) - 1
	if i < 0 {
		return -1
	}
	if off >= s.entryEnd(i) {
		return -1
	}
	return i
}

// entryEnd returns the buffer offset just past entry i.
func (s *Searcher) entryEnd(i int) int {
	if i+1 < len(s.entries) {
		return s.entries[i+1].start
	}
	return len(s.buf)
}

// Highlight highlights r and returns the node to scroll to.
func (s *Searcher) Highlight(r Range) (*html.Node, error) {
	return s.hl.Apply(r)
}

// Clear removes the current highlight without touching the index or cursor.
func (s *Searcher) Clear() {
	s.hl.Clear()
}

// Reset drops the index and cursor.
func (s *Searcher) Reset() {
	s.hl.Clear()
	s.container = nil
	s.entries = nil
	s.buf = ""
	s.cursor = 0
}

// Cursor returns the buffer offset the next search starts from.
func (s *Searcher) Cursor() int {
	return s.cursor
}

// Container returns the indexed container.
func (s *Searcher) Container() *html.Node {
	return s.container
}

// Text returns the flattened text of the indexed container.
func (s *Searcher) Text() string {
	return s.buf
}
