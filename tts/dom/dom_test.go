package dom

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parseBody(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)

	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, body)
	return body
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		require.NoError(t, html.Render(&buf, c))
	}
	return buf.String()
}

func TestSearcherRepeatedWords(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>the cat and the dog</p>")
	s := NewSearcher()
	s.Prepare(body)

	first, ok := s.Find(body, "the")
	require.True(t, ok)
	cursorAfterFirst := s.Cursor()

	second, ok := s.Find(body, "the")
	require.True(t, ok)

	assert.Equal(t, 0, first.StartOffset)
	assert.Equal(t, 12, second.StartOffset)
	assert.Greater(t, s.Cursor(), cursorAfterFirst)
	assert.Equal(t, "the", first.Text())
	assert.Equal(t, "the", second.Text())
}

func TestSearcherAcrossNodes(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>some <b>bo</b>ld text</p>")
	s := NewSearcher()

	r, ok := s.Find(body, "bold")
	require.True(t, ok, "Find should index a new container transparently")
	assert.NotSame(t, r.StartNode, r.EndNode)
	assert.Equal(t, "bold", r.Text())

	segs, err := r.Segments()
	require.NoError(t, err)
	assert.Len(t, segs, 2)
}

func TestSearcherBacktrack(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>alpha beta gamma</p>")
	s := NewSearcher()
	s.Prepare(body)

	_, ok := s.Find(body, "gamma")
	require.True(t, ok)

	// "beta" ends within the backtrack window before the cursor.
	r, ok := s.Find(body, "beta")
	require.True(t, ok)
	assert.Equal(t, 6, r.StartOffset)
	assert.Equal(t, len("alpha beta gamma"), s.Cursor(), "cursor never moves backwards")

	_, ok = s.Find(body, "delta")
	assert.False(t, ok)
	_, ok = s.Find(body, "")
	assert.False(t, ok)
}

func TestSearcherBacktrackWindow(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>start "+strings.Repeat("x", 40)+" end</p>")
	s := NewSearcher()
	s.Prepare(body)

	_, ok := s.Find(body, "end")
	require.True(t, ok)
	_, ok = s.Find(body, "start")
	assert.False(t, ok, "matches further back than the window are not found")
}

func TestSearcherSkipsScript(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<script>var word = 1;</script><p>word</p>")
	s := NewSearcher()
	s.Prepare(body)

	assert.Equal(t, "word", s.Text())
}

func TestSearcherContainerChange(t *testing.T) {
	t.Parallel()

	a := parseBody(t, "<p>one one</p>")
	b := parseBody(t, "<p>one</p>")
	s := NewSearcher()

	_, ok := s.Find(a, "one")
	require.True(t, ok)
	assert.Same(t, a, s.Container())

	r, ok := s.Find(b, "one")
	require.True(t, ok)
	assert.Same(t, b, s.Container())
	assert.Equal(t, 0, r.StartOffset, "new container starts from a fresh cursor")
}

func TestHighlighterWrapSingleNode(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>the cat sat</p>")
	original := render(t, body)
	s := NewSearcher()

	r, ok := s.Find(body, "cat")
	require.True(t, ok)

	node, err := s.Highlight(r)
	require.NoError(t, err)
	assert.True(t, IsMark(node))
	assert.Equal(t, `<p>the <mark class="tts-highlight">cat</mark> sat</p>`, render(t, body))

	s.Clear()
	assert.Equal(t, original, render(t, body))

	// The index still matches the restored document.
	r, ok = s.Find(body, "sat")
	require.True(t, ok)
	assert.Equal(t, "sat", r.Text())
}

func TestHighlighterSplitAcrossElements(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>some <b>bo</b>ld text</p>")
	original := render(t, body)
	s := NewSearcher()

	r, ok := s.Find(body, "bold")
	require.True(t, ok)

	node, err := s.Highlight(r)
	require.NoError(t, err)
	assert.True(t, IsMark(node))
	assert.Equal(t,
		`<p>some <b><mark class="tts-highlight">bo</mark></b><mark class="tts-highlight">ld</mark> text</p>`,
		render(t, body))

	s.Clear()
	assert.Equal(t, original, render(t, body))
}

func TestHighlighterReplacesPrevious(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>one two three</p>")
	s := NewSearcher()

	for _, w := range []string{"one", "two", "three"} {
		r, ok := s.Find(body, w)
		require.True(t, ok)
		_, err := s.Highlight(r)
		require.NoError(t, err)
	}
	assert.Equal(t, `<p>one two <mark class="tts-highlight">three</mark></p>`, render(t, body))
}

func TestRegistryHighlight(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>some <b>bo</b>ld text</p>")
	original := render(t, body)
	reg := NewRegistry()
	s := NewSearcher(WithRegistry(reg))

	r, ok := s.Find(body, "bold")
	require.True(t, ok)

	node, err := s.Highlight(r)
	require.NoError(t, err)
	assert.Same(t, r.StartNode, node)
	assert.Equal(t, original, render(t, body), "registry highlights leave the document untouched")
	assert.True(t, reg.Has(HighlightName))

	spans := reg.Lookup(r.StartNode)
	require.Len(t, spans, 1)
	assert.Equal(t, "bo", spans[0].Text())
	assert.Same(t, r.StartNode, reg.First(HighlightName))

	s.Clear()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>one two</p>")
	var reg Registry
	assert.Nil(t, reg.First(HighlightName))

	s := NewSearcher(WithRegistry(&reg))
	r, ok := s.Find(body, "two")
	require.True(t, ok)
	_, err := s.Highlight(r)
	require.NoError(t, err)
	assert.True(t, reg.Has(HighlightName))

	reg.Delete(HighlightName)
	assert.Zero(t, reg.Len())
}

func TestSearcherAfterWrap(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>alpha beta</p><p>gamma</p>")
	s := NewSearcher()

	r, ok := s.Find(body, "alpha")
	require.True(t, ok)
	_, err := s.Highlight(r)
	require.NoError(t, err)

	r, ok = s.Find(body, "beta")
	require.True(t, ok, "the next word in a wrapped text node resolves")
	assert.Equal(t, "beta", r.Text())
	assert.Equal(t, "<p>alpha beta</p><p>gamma</p>", render(t, body), "lookup restores the document")

	r, ok = s.Find(body, "gamma")
	require.True(t, ok)
	assert.Equal(t, 0, r.StartOffset)
}

func TestRangeValidate(t *testing.T) {
	t.Parallel()

	body := parseBody(t, "<p>abc</p>")
	text := body.FirstChild.FirstChild

	assert.NoError(t, Range{text, 0, text, 3}.Validate())
	assert.ErrorIs(t, Range{text, 2, text, 1}.Validate(), ErrInvalidRange)
	assert.ErrorIs(t, Range{text, 0, text, 9}.Validate(), ErrInvalidRange)
	assert.ErrorIs(t, Range{body, 0, text, 1}.Validate(), ErrInvalidRange)
	assert.True(t, Range{text, 1, text, 1}.Collapsed())

	detached := &html.Node{Type: html.TextNode, Data: "x"}
	assert.ErrorIs(t, Range{detached, 0, detached, 1}.Validate(), ErrDetached)

	_, err := NewHighlighter(nil).Apply(Range{text, 1, text, 1})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
