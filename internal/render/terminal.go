package render

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgnsrekt/readalong/tts/dom"
)

// Options control terminal layout.
type Options struct {
	// Width wraps lines at this many cells. Zero disables wrapping.
	Width int
	// Highlight styles highlighted text.
	Highlight lipgloss.Style
	// Registry supplies highlights that are not marked in the DOM.
	Registry *dom.Registry
}

// Rendered is laid out text together with where things ended up.
type Rendered struct {
	Lines []string

	nodes   map[*html.Node]int
	anchors []anchor
}

// anchor records that source text from offset on is shown at line.
type anchor struct {
	offset int
	line   int
}

func newRendered() *Rendered {
	return &Rendered{nodes: make(map[*html.Node]int)}
}

// String joins the lines.
func (r *Rendered) String() string {
	return strings.Join(r.Lines, "\n")
}

// LineOf returns the first line showing n or, for an element, its first
// displayed text.
func (r *Rendered) LineOf(n *html.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	if line, ok := r.nodes[n]; ok {
		return line, true
	}
	for _, t := range dom.TextNodes(n) {
		if line, ok := r.nodes[t]; ok {
			return line, true
		}
	}
	return 0, false
}

// LineOfOffset returns the line showing a source offset.
func (r *Rendered) LineOfOffset(off int) int {
	i := sort.Search(len(r.anchors), func(i int) bool {
		return r.anchors[i].offset > off
	}) - 1
	if i < 0 {
		return 0
	}
	return r.anchors[i].line
}

// OffsetOfLine returns the first source offset shown at or after line.
func (r *Rendered) OffsetOfLine(line int) (int, bool) {
	i := sort.Search(len(r.anchors), func(i int) bool {
		return r.anchors[i].line >= line
	})
	if i == len(r.anchors) {
		return 0, false
	}
	return r.anchors[i].offset, true
}

// DOM lays out the rendered document under root.
func DOM(root *html.Node, opts Options) *Rendered {
	out := newRendered()
	newLayout(out, opts).block(root)
	out.trimTrailingBlank()
	return out
}

// layout flows inline text into wrapped lines.
type layout struct {
	opts Options
	out  *Rendered

	line    strings.Builder
	width   int
	space   bool
	started bool

	prefix  string
	bullet  string
	styles  []lipgloss.Style
	marked  int
	pre     int
	cellSep bool

	// pending is the text node whose line is recorded with its first word.
	pending *html.Node
}

func newLayout(out *Rendered, opts Options) *layout {
	return &layout{opts: opts, out: out}
}

func (l *layout) block(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		l.node(c)
	}
}

func (l *layout) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		l.text(n)
		return
	case html.ElementNode:
	default:
		return
	}

	if dom.IsMark(n) {
		l.marked++
		l.block(n)
		l.marked--
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template:
	case atom.Br:
		l.flush()
	case atom.Hr:
		l.paragraph()
		width := l.opts.Width
		if width <= 0 {
			width = 40
		}
		l.emit(ruleStyle.Render(strings.Repeat("─", width)))
		l.blank()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		l.paragraph()
		l.word(strings.Repeat("#", headingLevel(n))+" ", nil, false)
		l.styled(headingStyle, n)
		l.paragraph()
	case atom.P:
		l.paragraph()
		l.block(n)
		l.paragraph()
	case atom.Div, atom.Section, atom.Article, atom.Table, atom.Thead, atom.Tbody:
		l.flush()
		l.block(n)
		l.flush()
		if n.DataAtom == atom.Table {
			l.blank()
		}
	case atom.Tr:
		l.flush()
		l.cellSep = false
		l.block(n)
		l.flush()
	case atom.Td, atom.Th:
		if l.cellSep {
			l.space = false
			l.word(" │ ", nil, false)
		}
		l.cellSep = true
		if n.DataAtom == atom.Th {
			l.styled(strongStyle, n)
		} else {
			l.block(n)
		}
	case atom.Ul, atom.Ol:
		l.list(n)
	case atom.Li:
		l.flush()
		l.block(n)
		l.flush()
	case atom.Blockquote:
		l.paragraph()
		saved := l.prefix
		l.prefix += gutterStyle.Render("│") + " "
		l.block(n)
		l.flush()
		l.prefix = saved
		l.blank()
	case atom.Pre:
		l.paragraph()
		l.pre++
		l.styled(codeStyle, n)
		l.pre--
		l.paragraph()
	case atom.Strong, atom.B:
		l.styled(strongStyle, n)
	case atom.Em, atom.I:
		l.styled(emStyle, n)
	case atom.Code:
		l.styled(codeStyle, n)
	case atom.A:
		l.styled(linkStyle, n)
	case atom.Input:
		if hasAttr(n, "checked") {
			l.word("[x]", nil, false)
		} else {
			l.word("[ ]", nil, false)
		}
		l.space = true
	default:
		l.block(n)
	}
}

func (l *layout) list(n *html.Node) {
	l.flush()
	saved := l.prefix
	ordered := n.DataAtom == atom.Ol
	num := 1
	if v, ok := attr(n, "start"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			num = i
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		marker := "• "
		if ordered {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		l.bullet = marker
		l.prefix = saved + strings.Repeat(" ", runewidth.StringWidth(marker))
		l.node(c)
	}
	l.prefix = saved
	if saved == "" {
		l.blank()
	}
}

func (l *layout) styled(st lipgloss.Style, n *html.Node) {
	l.styles = append(l.styles, st)
	l.block(n)
	l.styles = l.styles[:len(l.styles)-1]
}

// text lays out a text node, splitting at highlight boundaries.
func (l *layout) text(n *html.Node) {
	if n.Data == "" {
		return
	}
	if _, seen := l.out.nodes[n]; !seen {
		l.pending = n
	}

	spans := l.highlights(n)
	if l.pre > 0 {
		l.preformatted(n.Data, spans)
		l.pending = nil
		return
	}

	data := n.Data
	i := 0
	for i < len(data) {
		r, size := decodeRune(data, i)
		if unicode.IsSpace(r) {
			l.space = l.started
			i += size
			continue
		}
		j := i
		for j < len(data) {
			r, size := decodeRune(data, j)
			if unicode.IsSpace(r) {
				break
			}
			j += size
		}
		l.word(data[i:j], clip(spans, i, j), true)
		i = j
	}
	l.pending = nil
}

// preformatted writes text keeping its line breaks.
func (l *layout) preformatted(data string, spans [][2]int) {
	off := 0
	for {
		nl := strings.IndexByte(data[off:], '\n')
		end := len(data)
		if nl >= 0 {
			end = off + nl
		}
		if end > off {
			l.write(data[off:end], clip(spans, off, end))
		}
		if nl < 0 {
			return
		}
		off = end + 1
		if off < len(data) {
			l.flush()
		}
	}
}

// word appends one unbreakable piece of text, wrapping first when it does
// not fit. spans are highlighted byte spans relative to w.
func (l *layout) word(w string, spans [][2]int, wrap bool) {
	need := runewidth.StringWidth(w)
	if l.space {
		need++
	}
	if wrap && l.opts.Width > 0 && l.started && l.width+need > l.opts.Width {
		l.flush()
	}
	if l.space && l.started {
		l.line.WriteByte(' ')
		l.width++
	}
	l.space = false
	l.write(w, spans)
}

func (l *layout) write(w string, spans [][2]int) {
	if !l.started {
		l.start()
	}
	if l.pending != nil {
		l.out.nodes[l.pending] = len(l.out.Lines)
		l.pending = nil
	}
	st := l.style()
	prev := 0
	for _, s := range spans {
		l.line.WriteString(render(st, w[prev:s[0]]))
		l.line.WriteString(render(l.opts.Highlight.Inherit(st), w[s[0]:s[1]]))
		prev = s[1]
	}
	l.line.WriteString(render(st, w[prev:]))
	l.width += runewidth.StringWidth(w)
}

func (l *layout) start() {
	l.started = true
	lead := l.prefix
	if l.bullet != "" {
		lead = l.prefix[:len(l.prefix)-runewidth.StringWidth(l.bullet)] + l.bullet
		l.bullet = ""
	}
	l.line.WriteString(lead)
	l.width = runewidth.StringWidth(lead)
}

func (l *layout) style() lipgloss.Style {
	st := lipgloss.NewStyle()
	for _, s := range l.styles {
		st = s.Inherit(st)
	}
	return st
}

// highlights returns the highlighted byte spans of a text node.
func (l *layout) highlights(n *html.Node) [][2]int {
	if l.marked > 0 {
		return [][2]int{{0, len(n.Data)}}
	}
	var spans [][2]int
	for _, s := range l.opts.Registry.Lookup(n) {
		spans = append(spans, [2]int{s.Start, s.End})
	}
	return spans
}

// flush ends the current line.
func (l *layout) flush() {
	if !l.started {
		l.space = false
		return
	}
	l.emit(l.line.String())
	l.line.Reset()
	l.width = 0
	l.space = false
	l.started = false
}

func (l *layout) emit(s string) {
	l.out.Lines = append(l.out.Lines, s)
}

// paragraph ends the current line and separates the next block with a
// blank line.
func (l *layout) paragraph() {
	l.flush()
	l.blank()
}

func (l *layout) blank() {
	if n := len(l.out.Lines); n > 0 && l.out.Lines[n-1] != "" && l.prefix == "" {
		l.out.Lines = append(l.out.Lines, "")
	}
}

func (r *Rendered) trimTrailingBlank() {
	for len(r.Lines) > 0 && r.Lines[len(r.Lines)-1] == "" {
		r.Lines = r.Lines[:len(r.Lines)-1]
	}
}

// clip returns the parts of spans inside [from, to), relative to from.
func clip(spans [][2]int, from, to int) [][2]int {
	var out [][2]int
	for _, s := range spans {
		start, end := max(s[0], from), min(s[1], to)
		if start < end {
			out = append(out, [2]int{start - from, end - from})
		}
	}
	return out
}

func decodeRune(s string, i int) (rune, int) {
	return utf8.DecodeRuneInString(s[i:])
}

func render(st lipgloss.Style, s string) string {
	if s == "" {
		return ""
	}
	return st.Render(s)
}

func headingLevel(n *html.Node) int {
	return int(n.Data[1] - '0')
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}
