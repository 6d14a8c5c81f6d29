// Package editor provides an in-memory editable document that speech
// playback can highlight on.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgnsrekt/readalong/internal/render"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

// ErrOutOfRange is returned for edits outside the document.
var ErrOutOfRange = errors.New("edit outside document")

// Widget is rendered content the live preview shows in place of a source
// range.
type Widget struct {
	Range textmap.EditorRange
	// Node is the widget's element inside the container.
	Node *html.Node
}

// Buffer is an editable document. It implements tts.EditorSurface.
type Buffer struct {
	mu sync.Mutex

	text      string
	version   int
	cursor    int
	selection textmap.EditorRange
	deco      textmap.EditorRange
	hasDeco   bool

	live      bool
	widgets   []Widget
	container *html.Node
	built     bool

	subs   map[int]func()
	nextID int
}

// New creates a buffer holding text with the cursor at the start.
func New(text string) *Buffer {
	return &Buffer{
		text: text,
		subs: make(map[int]func()),
	}
}

// Text returns the document.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Version increases with every change to the document.
func (b *Buffer) Version() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// SetText replaces the whole document.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.text = text
	b.cursor = min(b.cursor, len(text))
	b.changed()
	b.mu.Unlock()
	b.notify()
}

// Insert inserts s at offset off.
func (b *Buffer) Insert(off int, s string) error {
	b.mu.Lock()
	if off < 0 || off > len(b.text) {
		b.mu.Unlock()
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, off, len(b.text))
	}
	b.text = b.text[:off] + s + b.text[off:]
	if b.cursor >= off {
		b.cursor += len(s)
	}
	b.changed()
	b.mu.Unlock()
	b.notify()
	return nil
}

// Delete removes the bytes in r.
func (b *Buffer) Delete(r textmap.EditorRange) error {
	b.mu.Lock()
	if r.From < 0 || r.To > len(b.text) || r.IsEmpty() {
		b.mu.Unlock()
		return fmt.Errorf("%w: delete %s, length %d", ErrOutOfRange, r, len(b.text))
	}
	b.text = b.text[:r.From] + b.text[r.To:]
	switch {
	case b.cursor >= r.To:
		b.cursor -= r.Len()
	case b.cursor > r.From:
		b.cursor = r.From
	}
	b.changed()
	b.mu.Unlock()
	b.notify()
	return nil
}

// changed resets state that depends on the text. Callers hold mu.
func (b *Buffer) changed() {
	b.version++
	b.selection = textmap.EditorRange{}
	b.hasDeco = false
	b.built = false
}

// Cursor returns the cursor offset.
func (b *Buffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// SetCursor moves the cursor, clamped to the document, and clears the
// selection.
func (b *Buffer) SetCursor(off int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = max(0, min(off, len(b.text)))
	b.selection = textmap.EditorRange{}
}

// Selection returns the selected range, if any.
func (b *Buffer) Selection() (textmap.EditorRange, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection, !b.selection.IsEmpty()
}

// Select selects r, clamped to the document, and puts the cursor at its
// end.
func (b *Buffer) Select(r textmap.EditorRange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.From = max(0, min(r.From, len(b.text)))
	r.To = max(r.From, min(r.To, len(b.text)))
	b.selection = r
	b.cursor = r.To
}

// SetDecoration highlights r, replacing any previous highlight.
func (b *Buffer) SetDecoration(r textmap.EditorRange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deco = r
	b.hasDeco = true
}

// ClearDecoration removes the highlight.
func (b *Buffer) ClearDecoration() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deco = textmap.EditorRange{}
	b.hasDeco = false
}

// Decoration returns the highlighted range.
func (b *Buffer) Decoration() (textmap.EditorRange, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deco, b.hasDeco
}

// LivePreview reports whether tables are shown rendered.
func (b *Buffer) LivePreview() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// SetLivePreview switches between raw source and source with rendered
// tables.
func (b *Buffer) SetLivePreview(live bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = live
}

// DecorationVisible reports whether a decoration over r would be shown.
// In live preview a range touching a widget is hidden behind it.
func (b *Buffer) DecorationVisible(r textmap.EditorRange) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return true
	}
	b.build()
	for _, w := range b.widgets {
		if w.Range.Intersects(r) {
			return false
		}
	}
	return true
}

// WidgetContainer returns the DOM holding the rendered widgets, or nil
// outside live preview or when the document has none.
func (b *Buffer) WidgetContainer() *html.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return nil
	}
	b.build()
	if len(b.widgets) == 0 {
		return nil
	}
	return b.container
}

// Widgets returns the live preview widgets in document order.
func (b *Buffer) Widgets() []Widget {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return nil
	}
	b.build()
	return append([]Widget(nil), b.widgets...)
}

// WidgetAt returns the widget covering off.
func (b *Buffer) WidgetAt(off int) (Widget, bool) {
	for _, w := range b.Widgets() {
		if w.Range.Contains(off) {
			return w, true
		}
	}
	return Widget{}, false
}

// build renders the widgets of the current text once per version.
// Callers hold mu.
func (b *Buffer) build() {
	if b.built {
		return
	}
	b.built = true
	b.widgets = nil
	b.container = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

	tables, err := render.Tables(b.text)
	if err != nil {
		log.Warn("Rendering live preview failed", "error", err)
		return
	}
	for _, t := range tables {
		node, err := render.Fragment(t.HTML)
		if err != nil {
			log.Warn("Parsing live preview widget failed", "range", t.Range, "error", err)
			continue
		}
		node.Attr = append(node.Attr, html.Attribute{Key: "class", Val: "widget"})
		b.container.AppendChild(node)
		b.widgets = append(b.widgets, Widget{Range: t.Range, Node: node})
	}
	sort.Slice(b.widgets, func(i, j int) bool { return b.widgets[i].Range.From < b.widgets[j].Range.From })
}

// Subscribe registers fn to run after every document change.
func (b *Buffer) Subscribe(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// notify runs the subscribers in registration order without holding mu.
func (b *Buffer) notify() {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var _ tts.EditorSurface = (*Buffer)(nil)
