package render

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"

	"github.com/dgnsrekt/readalong/tts/textmap"
)

const tabWidth = 4

// Widget is rendered content shown in place of a source range.
type Widget struct {
	Range textmap.EditorRange
	Node  *html.Node
}

// Source lays out editor text line by line, highlighting deco when it is
// not empty. Each widget replaces the source lines it covers with its
// rendered DOM.
func Source(text string, deco textmap.EditorRange, widgets []Widget, opts Options) *Rendered {
	out := newRendered()
	widgets = append([]Widget(nil), widgets...)
	sort.Slice(widgets, func(i, j int) bool { return widgets[i].Range.From < widgets[j].Range.From })

	pos := 0
	for pos <= len(text) {
		if len(widgets) > 0 && widgets[0].Range.From <= pos {
			w := widgets[0]
			widgets = widgets[1:]
			if w.Range.To < pos {
				continue
			}
			first := len(out.Lines)
			out.anchors = append(out.anchors, anchor{offset: pos, line: first})
			l := newLayout(out, opts)
			l.block(w.Node)
			l.flush()
			for len(out.Lines) > first+1 && out.Lines[len(out.Lines)-1] == "" {
				out.Lines = out.Lines[:len(out.Lines)-1]
			}
			pos = w.Range.To
			if pos < len(text) && text[pos] == '\n' {
				pos++
			}
			if pos >= len(text) {
				break
			}
			continue
		}

		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}
		if len(widgets) > 0 && widgets[0].Range.From < end {
			end = widgets[0].Range.From
		}
		sourceLine(out, text, pos, end, deco, opts)
		if end >= len(text) {
			break
		}
		pos = end
		if text[pos] == '\n' {
			pos++
		}
	}
	return out
}

// sourceLine lays out text[from:to], hard wrapping at opts.Width.
func sourceLine(out *Rendered, text string, from, to int, deco textmap.EditorRange, opts Options) {
	var line strings.Builder
	width := 0
	start := from
	flush := func(next int) {
		out.anchors = append(out.anchors, anchor{offset: start, line: len(out.Lines)})
		out.Lines = append(out.Lines, line.String())
		line.Reset()
		width = 0
		start = next
	}

	i := from
	for i < to {
		r, size := utf8.DecodeRuneInString(text[i:])
		cell := string(r)
		w := runewidth.RuneWidth(r)
		if r == '\t' {
			cell = strings.Repeat(" ", tabWidth)
			w = tabWidth
		}
		if opts.Width > 0 && width > 0 && width+w > opts.Width {
			flush(i)
		}

		// Runs of equally highlighted runes are styled together.
		j := i + size
		lit := !deco.IsEmpty() && deco.Contains(i)
		for j < to && r != '\t' {
			r2, size2 := utf8.DecodeRuneInString(text[j:])
			w2 := runewidth.RuneWidth(r2)
			if r2 == '\t' || (!deco.IsEmpty() && deco.Contains(j)) != lit ||
				(opts.Width > 0 && width+w+w2 > opts.Width) {
				break
			}
			cell += string(r2)
			w += w2
			j += size2
		}

		if lit {
			line.WriteString(opts.Highlight.Render(cell))
		} else {
			line.WriteString(cell)
		}
		width += w
		i = j
	}
	flush(to)
}
