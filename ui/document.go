package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"

	"github.com/dgnsrekt/readalong/internal/editor"
	"github.com/dgnsrekt/readalong/internal/render"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/dom"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

// Mode selects how the document is shown.
type Mode int

const (
	// ModeSource shows the raw markdown.
	ModeSource Mode = iota
	// ModeLive shows the markdown with tables rendered in place.
	ModeLive
	// ModeReading shows the rendered document.
	ModeReading
)

func (m Mode) String() string {
	switch m {
	case ModeSource:
		return "source"
	case ModeLive:
		return "live"
	case ModeReading:
		return "reading"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeSource, ModeLive, ModeReading} {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeSource, fmt.Errorf("unknown view mode %q", s)
}

// Target returns the surface playback highlights on in this mode.
func (m Mode) Target() tts.Target {
	if m == ModeReading {
		return tts.TargetReading
	}
	return tts.TargetEditor
}

// readingSurface is the rendered DOM of the document.
type readingSurface struct {
	body *html.Node
}

// Container implements tts.ReadingSurface.
func (r *readingSurface) Container() *html.Node {
	return r.body
}

func (r *readingSurface) load(source string) error {
	body, err := render.Document(source)
	if err != nil {
		return err
	}
	r.body = body
	return nil
}

// documentView lays the document out for the viewport and keeps the
// highlight in view. It implements tts.Scroller.
type documentView struct {
	viewport viewport.Model
	mode     Mode
	margin   int

	buffer    *editor.Buffer
	reading   *readingSurface
	registry  *dom.Registry
	highlight lipgloss.Style

	rendered *render.Rendered
}

func newDocumentView(buffer *editor.Buffer, reading *readingSurface, registry *dom.Registry, highlight lipgloss.Style, margin int) *documentView {
	return &documentView{
		viewport:  viewport.New(0, 0),
		buffer:    buffer,
		reading:   reading,
		registry:  registry,
		highlight: highlight,
		margin:    margin,
		rendered:  &render.Rendered{},
	}
}

func (d *documentView) setSize(w, h int) {
	d.viewport.Width = w
	d.viewport.Height = h
	d.refresh()
}

func (d *documentView) setMode(m Mode) {
	d.mode = m
	d.buffer.SetLivePreview(m == ModeLive)
	d.refresh()
}

// refresh lays the document out again.
func (d *documentView) refresh() {
	opts := render.Options{
		Width:     d.viewport.Width,
		Highlight: d.highlight,
		Registry:  d.registry,
	}

	switch d.mode {
	case ModeReading:
		if d.reading.Container() == nil {
			d.rendered = &render.Rendered{}
			break
		}
		d.rendered = render.DOM(d.reading.Container(), opts)
	default:
		deco, ok := d.buffer.Decoration()
		if !ok {
			deco = textmap.EditorRange{}
		}
		var widgets []render.Widget
		for _, w := range d.buffer.Widgets() {
			widgets = append(widgets, render.Widget{Range: w.Range, Node: w.Node})
		}
		d.rendered = render.Source(d.buffer.Text(), deco, widgets, opts)
	}

	d.viewport.SetContent(d.rendered.String())
}

// ScrollToNode implements tts.Scroller.
func (d *documentView) ScrollToNode(n *html.Node) {
	d.refresh()
	if line, ok := d.rendered.LineOf(n); ok {
		d.ensureVisible(line)
	}
}

// ScrollToOffset implements tts.Scroller.
func (d *documentView) ScrollToOffset(offset int) {
	d.refresh()
	if d.mode == ModeReading {
		return
	}
	d.ensureVisible(d.rendered.LineOfOffset(offset))
}

// ensureVisible scrolls the least amount that keeps line at least margin
// lines away from the viewport's edges.
func (d *documentView) ensureVisible(line int) {
	h := d.viewport.Height
	if h <= 0 {
		return
	}
	margin := min(d.margin, (h-1)/2)
	top := d.viewport.YOffset

	switch {
	case line < top+margin:
		d.viewport.SetYOffset(max(0, line-margin))
	case line >= top+h-margin:
		d.viewport.SetYOffset(line - h + margin + 1)
	}
}

// topOffset returns the source offset of the first visible line.
func (d *documentView) topOffset() (int, bool) {
	if d.mode == ModeReading {
		return 0, false
	}
	return d.rendered.OffsetOfLine(d.viewport.YOffset)
}

var _ tts.Scroller = (*documentView)(nil)
