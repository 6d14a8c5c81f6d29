package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/dgnsrekt/readalong/tts/dom"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// plain strips escape sequences so assertions do not depend on the
// terminal's colour profile.
func plain(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = ansiRe.ReplaceAllString(l, "")
	}
	return out
}

func upper() Options {
	return Options{Highlight: lipgloss.NewStyle().Transform(strings.ToUpper)}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for _, t := range dom.TextNodes(n) {
		b.WriteString(t.Data)
	}
	return b.String()
}

func TestDocument(t *testing.T) {
	t.Parallel()

	body, err := Document("# Title\n\nThis is **bold** text.")
	require.NoError(t, err)
	assert.Equal(t, "body", body.Data)

	text := textOf(body)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "This is bold text.")
}

func TestDocumentFrontmatter(t *testing.T) {
	t.Parallel()

	body, err := Document("---\ntitle: secret\n---\n# Head")
	require.NoError(t, err)

	text := textOf(body)
	assert.NotContains(t, text, "secret")
	assert.Contains(t, text, "Head")
}

func TestTables(t *testing.T) {
	t.Parallel()

	src := "intro\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nafter"
	tables, err := Tables(src)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	want := textmap.EditorRange{
		From: strings.Index(src, "| a"),
		To:   strings.Index(src, "| 1 | 2 |") + len("| 1 | 2 |"),
	}
	assert.Equal(t, want, tables[0].Range)
	assert.Contains(t, tables[0].HTML, "<table>")
	assert.Contains(t, tables[0].HTML, "<td>2</td>")

	none, err := Tables("no tables here")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDOMLayout(t *testing.T) {
	t.Parallel()

	body, err := Document("# Title\n\nThis is **bold** text.\n\n- one\n- two")
	require.NoError(t, err)

	r := DOM(body, Options{})
	assert.Equal(t, []string{
		"# Title",
		"",
		"This is bold text.",
		"",
		"• one",
		"• two",
	}, plain(r.Lines))
}

func TestDOMLayoutWrap(t *testing.T) {
	t.Parallel()

	root, err := Fragment("<p>alpha beta gamma</p>")
	require.NoError(t, err)

	r := DOM(root, Options{Width: 10})
	assert.Equal(t, []string{"alpha beta", "gamma"}, plain(r.Lines))
}

func TestDOMHighlightMark(t *testing.T) {
	t.Parallel()

	root, err := Fragment("<p>one</p><p>two three</p>")
	require.NoError(t, err)

	s := dom.NewSearcher()
	rng, ok := s.Find(root, "three")
	require.True(t, ok)
	mark, err := s.Highlight(rng)
	require.NoError(t, err)

	r := DOM(root, upper())
	assert.Equal(t, []string{"one", "", "two THREE"}, plain(r.Lines))

	line, ok := r.LineOf(mark)
	require.True(t, ok)
	assert.Equal(t, 2, line)
}

func TestDOMHighlightRegistry(t *testing.T) {
	t.Parallel()

	root, err := Fragment("<p>some <b>bo</b>ld text</p>")
	require.NoError(t, err)

	reg := dom.NewRegistry()
	s := dom.NewSearcher(dom.WithRegistry(reg))
	rng, ok := s.Find(root, "bold")
	require.True(t, ok)
	node, err := s.Highlight(rng)
	require.NoError(t, err)

	opts := upper()
	opts.Registry = reg
	r := DOM(root, opts)
	assert.Equal(t, []string{"some BOLD text"}, plain(r.Lines))

	line, ok := r.LineOf(node)
	require.True(t, ok)
	assert.Equal(t, 0, line)
}

func TestSourceDecoration(t *testing.T) {
	t.Parallel()

	r := Source("alpha beta\ngamma", textmap.EditorRange{From: 6, To: 10}, nil, upper())
	assert.Equal(t, []string{"alpha BETA", "gamma"}, plain(r.Lines))
	assert.Equal(t, 0, r.LineOfOffset(7))
	assert.Equal(t, 1, r.LineOfOffset(11))
}

func TestSourceWrap(t *testing.T) {
	t.Parallel()

	r := Source("aaaa bbbbb", textmap.EditorRange{}, nil, Options{Width: 4})
	assert.Equal(t, []string{"aaaa", " bbb", "bb"}, plain(r.Lines))
	assert.Equal(t, 1, r.LineOfOffset(6))
	assert.Equal(t, 2, r.LineOfOffset(9))

	off, ok := r.OffsetOfLine(1)
	require.True(t, ok)
	assert.Equal(t, 4, off)
	_, ok = r.OffsetOfLine(3)
	assert.False(t, ok)
}

func TestSourceEmpty(t *testing.T) {
	t.Parallel()

	r := Source("", textmap.EditorRange{}, nil, Options{})
	assert.Equal(t, []string{""}, r.Lines)

	r = Source("a\n", textmap.EditorRange{}, nil, Options{})
	assert.Equal(t, []string{"a", ""}, r.Lines)
}

func TestSourceWidgets(t *testing.T) {
	t.Parallel()

	src := "intro\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nafter"
	tables, err := Tables(src)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	node, err := Fragment(tables[0].HTML)
	require.NoError(t, err)

	r := Source(src, textmap.EditorRange{}, []Widget{{Range: tables[0].Range, Node: node}}, Options{})
	assert.Equal(t, []string{"intro", "", "a │ b", "1 │ 2", "", "after"}, plain(r.Lines))
	assert.Equal(t, 2, r.LineOfOffset(tables[0].Range.From+3))
	assert.Equal(t, 5, r.LineOfOffset(strings.Index(src, "after")))

	cell := dom.TextNodes(node)
	var one *html.Node
	for _, n := range cell {
		if n.Data == "1" {
			one = n
		}
	}
	require.NotNil(t, one)
	line, ok := r.LineOf(one)
	require.True(t, ok)
	assert.Equal(t, 3, line)
}

func TestHighlightStyle(t *testing.T) {
	t.Parallel()

	assert.True(t, HighlightStyle("none").GetReverse())
	assert.Equal(t, lipgloss.Color("3"), HighlightStyle("Yellow").GetBackground())
	assert.Equal(t, lipgloss.Color("#ff0"), HighlightStyle("#ff0").GetBackground())
	assert.Equal(t, lipgloss.Color("7"), HighlightStyle("blue").GetForeground())
}
