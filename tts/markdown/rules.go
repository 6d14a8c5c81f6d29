package markdown

import (
	"regexp"
	"strings"
)

// rule matches a construct at the scanner position. When it matches it
// consumes the construct, emits whatever text the construct contributes and
// returns true. A rule that does not match must leave the scanner untouched.
type rule struct {
	name  string
	match func(s *scanner) bool
}

// lineRules are tried in order while the scanner is at the start of a line.
// The order is part of the contract: later rules assume the earlier ones
// already rejected the line (a horizontal rule is only considered once the
// list rules have passed on it).
var lineRules, inlineRules []rule

// The tables are filled in init because the link and pair rules scan
// recursively through the tables themselves.
func init() {
	lineRules = []rule{
		{"indent", matchIndent},
		{"table-separator", matchTableSeparator},
		{"fence", matchFence},
		{"heading", matchHeading},
		{"blockquote", matchBlockquote},
		{"unordered-list", matchUnorderedList},
		{"ordered-list", matchOrderedList},
		{"horizontal-rule", matchHorizontalRule},
	}

	// inlineRules are tried in order at every position.
	inlineRules = []rule{
		{"escape", matchEscape},
		{"inline-code", matchInlineCode},
		{"html-comment", matchHTMLComment},
		{"image", matchImage},
		{"wikilink", matchWikilink},
		{"link", matchLink},
		{"emphasis", matchEmphasis},
		{"strikethrough", matchPair("~~")},
		{"highlight", matchPair("==")},
		{"table-pipe", matchPipe},
		{"html-tag", matchHTMLTag},
	}
}

var htmlTagRe = regexp.MustCompile(`^</?[A-Za-z][A-Za-z0-9-]*(?:\s+[^<>]*?)?\s*/?>`)

// matchFrontmatter consumes a leading "---" block up to the next lone
// "---" line. Without a closing line everything is consumed.
func matchFrontmatter(s *scanner) bool {
	rest := s.rest()
	if !strings.HasPrefix(rest, "---\n") && !strings.HasPrefix(rest, "---\r\n") {
		return false
	}

	at := s.lineEnd(s.pos) + 1
	for at < s.end {
		le := s.lineEnd(at)
		if strings.TrimRight(s.src[at:le], "\r") == "---" {
			s.pos = le
			return true
		}
		at = le + 1
	}
	s.pos = s.end
	return true
}

func matchIndent(s *scanner) bool {
	n := 0
	for rest := s.rest(); n < len(rest) && (rest[n] == ' ' || rest[n] == '\t'); n++ {
	}
	if n == 0 {
		return false
	}
	s.pos += n
	return true
}

func matchTableSeparator(s *scanner) bool {
	le := s.lineEnd(s.pos)
	line := strings.TrimRight(s.src[s.pos:le], "\r")
	if !strings.Contains(line, "|") || !strings.Contains(line, "-") {
		return false
	}
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '-', ':', '|', ' ', '\t':
		default:
			return false
		}
	}
	s.pos = le
	s.lineStart = false
	return true
}

// matchFence drops a fenced code block, fences and content alike.
func matchFence(s *scanner) bool {
	rest := s.rest()
	if !strings.HasPrefix(rest, "```") && !strings.HasPrefix(rest, "~~~") {
		return false
	}
	ch := rest[0]
	n := runLength(rest, ch)

	at := s.lineEnd(s.pos) + 1
	for at < s.end {
		le := s.lineEnd(at)
		line := strings.TrimLeft(s.src[at:le], " ")
		if le-at-len(line) <= 3 && runLength(line, ch) >= n {
			s.pos = le
			s.lineStart = false
			return true
		}
		at = le + 1
	}
	s.pos = s.end
	return true
}

func matchHeading(s *scanner) bool {
	rest := s.rest()
	n := runLength(rest, '#')
	if n == 0 || n > 6 || n >= len(rest) || rest[n] != ' ' {
		return false
	}
	s.pos += n + runLength(rest[n:], ' ')
	s.lineStart = false
	return true
}

// matchBlockquote drops "> " and keeps the scanner at line start so that
// nested quotes and list markers inside the quote are stripped too.
func matchBlockquote(s *scanner) bool {
	rest := s.rest()
	if rest == "" || rest[0] != '>' {
		return false
	}
	n := 1
	if n < len(rest) && rest[n] == ' ' {
		n++
	}
	n += calloutLength(rest[n:])
	s.pos += n
	return true
}

// calloutLength returns the length of a "[!type]" callout header with an
// optional fold marker and trailing spaces, or 0.
func calloutLength(rest string) int {
	if !strings.HasPrefix(rest, "[!") {
		return 0
	}
	i := 2
	for i < len(rest) && (isAlnum(rest[i]) || rest[i] == '-' || rest[i] == '_') {
		i++
	}
	if i == 2 || i >= len(rest) || rest[i] != ']' {
		return 0
	}
	i++
	if i < len(rest) && (rest[i] == '+' || rest[i] == '-') {
		i++
	}
	return i + runLength(rest[i:], ' ')
}

func matchUnorderedList(s *scanner) bool {
	rest := s.rest()
	if len(rest) < 2 || !strings.ContainsRune("-*+", rune(rest[0])) || rest[1] != ' ' {
		return false
	}
	n := 1 + runLength(rest[1:], ' ')
	n += checkboxLength(rest[n:])
	s.pos += n
	s.lineStart = false
	return true
}

// checkboxLength returns the length of a task list checkbox and the spaces
// after it, or 0.
func checkboxLength(rest string) int {
	if len(rest) < 3 || rest[0] != '[' || rest[2] != ']' {
		return 0
	}
	switch rest[1] {
	case ' ', 'x', 'X':
	default:
		return 0
	}
	if len(rest) > 3 && rest[3] != ' ' && rest[3] != '\n' && rest[3] != '\r' {
		return 0
	}
	return 3 + runLength(rest[3:], ' ')
}

func matchOrderedList(s *scanner) bool {
	rest := s.rest()
	n := 0
	for n < len(rest) && n < 9 && isDigit(rest[n]) {
		n++
	}
	if n == 0 || n+1 >= len(rest) || rest[n] != '.' || rest[n+1] != ' ' {
		return false
	}
	s.pos += n + 1 + runLength(rest[n+1:], ' ')
	s.lineStart = false
	return true
}

func matchHorizontalRule(s *scanner) bool {
	rest := s.rest()
	if rest == "" || !strings.ContainsRune("-*_", rune(rest[0])) {
		return false
	}
	n := runLength(rest, rest[0])
	if n < 3 {
		return false
	}
	le := s.lineEnd(s.pos)
	if strings.TrimRight(s.src[s.pos+n:le], whitespace) != "" {
		return false
	}
	s.pos = le
	s.lineStart = false
	return true
}

func matchEscape(s *scanner) bool {
	rest := s.rest()
	if len(rest) < 2 || rest[0] != '\\' || !isPunct(rest[1]) {
		return false
	}
	s.emit(rest[1:2], s.pos+1)
	s.pos += 2
	return true
}

// matchInlineCode keeps the code text and drops the backtick runs. An
// unterminated run is copied as literal text.
func matchInlineCode(s *scanner) bool {
	rest := s.rest()
	n := runLength(rest, '`')
	if n == 0 {
		return false
	}

	closing := -1
	for i := n; i < len(rest); {
		j := strings.IndexByte(rest[i:], '`')
		if j < 0 {
			break
		}
		run := runLength(rest[i+j:], '`')
		if run == n {
			closing = i + j
			break
		}
		i += j + run
	}

	if closing < 0 {
		s.emit(rest[:n], s.pos)
		s.pos += n
		return true
	}

	content := strings.NewReplacer("\n", " ", "\r", " ").Replace(rest[n:closing])
	s.emit(content, s.pos+n)
	s.pos += closing + n
	return true
}

func matchHTMLComment(s *scanner) bool {
	rest := s.rest()
	if !strings.HasPrefix(rest, "<!--") {
		return false
	}
	end := strings.Index(rest[4:], "-->")
	if end < 0 {
		return false
	}
	s.pos += 4 + end + 3
	return true
}

// matchImage keeps the alt text of ![alt](url) at its original offsets.
func matchImage(s *scanner) bool {
	rest := s.rest()
	if !strings.HasPrefix(rest, "![") || strings.HasPrefix(rest, "![[") {
		return false
	}
	closeBracket, closeParen, ok := s.linkParts(s.pos + 1)
	if !ok {
		return false
	}
	s.emit(s.src[s.pos+2:closeBracket], s.pos+2)
	s.pos = closeParen + 1
	return true
}

// matchWikilink keeps the display segment of [[target|display]], or the
// target when there is no display segment. Embeds (![[...]]) are treated
// the same way.
func matchWikilink(s *scanner) bool {
	rest := s.rest()
	lead := 0
	if strings.HasPrefix(rest, "!") {
		lead = 1
	}
	if !strings.HasPrefix(rest[lead:], "[[") {
		return false
	}
	open := lead + 2
	end := strings.Index(rest[open:], "]]")
	if end < 0 || strings.ContainsRune(rest[open:open+end], '\n') {
		return false
	}
	inner := rest[open : open+end]
	display, at := inner, open
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		display, at = inner[i+1:], open+i+1
	}
	s.emit(display, s.pos+at)
	s.pos += open + end + 2
	return true
}

// matchLink converts the text of [text](url) with the full rule set and
// drops the url.
func matchLink(s *scanner) bool {
	if s.src[s.pos] != '[' {
		return false
	}
	closeBracket, closeParen, ok := s.linkParts(s.pos)
	if !ok {
		return false
	}
	s.lineStart = false
	s.scanRegion(s.pos+1, closeBracket, closeParen+1)
	return true
}

// linkParts finds the "]" matching the "[" at open and the ")" closing the
// url that must follow it immediately.
func (s *scanner) linkParts(open int) (closeBracket, closeParen int, ok bool) {
	closeBracket = matchingClose(s.src[:s.end], open, '[', ']')
	if closeBracket < 0 || closeBracket+1 >= s.end || s.src[closeBracket+1] != '(' {
		return 0, 0, false
	}
	closeParen = matchingClose(s.src[:s.end], closeBracket+1, '(', ')')
	if closeParen < 0 {
		return 0, 0, false
	}
	return closeBracket, closeParen, true
}

// matchingClose returns the offset of the delimiter closing the one at
// open, counting nesting and skipping escaped bytes, or -1.
func matchingClose(text string, open int, left, right byte) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchEmphasis drops runs of up to three "*" or "_". Longer runs, runs
// standing alone between spaces and intraword underscores are literal.
func matchEmphasis(s *scanner) bool {
	rest := s.rest()
	ch := rest[0]
	if ch != '*' && ch != '_' {
		return false
	}
	n := runLength(rest, ch)

	var next byte
	if n < len(rest) {
		next = rest[n]
	}
	prev := s.prevByte()

	literal := n > 3 ||
		(isSpace(prev) && isSpace(next)) ||
		(ch == '_' && isWordByte(prev) && isWordByte(next))
	if literal {
		s.emit(rest[:n], s.pos)
	}
	s.pos += n
	return true
}

// matchPair returns a rule dropping a two-byte marker pair such as ~~x~~
// when the closing marker is on the same line. The enclosed text is
// converted recursively.
func matchPair(marker string) func(s *scanner) bool {
	return func(s *scanner) bool {
		rest := s.rest()
		if !strings.HasPrefix(rest, marker) {
			return false
		}
		le := s.lineEnd(s.pos) - s.pos
		end := strings.Index(rest[2:le], marker)
		if end <= 0 {
			return false
		}
		start := s.pos + 2
		s.scanRegion(start, start+end, start+end+2)
		return true
	}
}

// matchPipe replaces a table pipe and the spaces after it with at most one
// space.
func matchPipe(s *scanner) bool {
	rest := s.rest()
	if rest[0] != '|' {
		return false
	}
	s.space(s.pos)
	s.pos += 1 + runLength(rest[1:], ' ')
	return true
}

func matchHTMLTag(s *scanner) bool {
	rest := s.rest()
	if rest[0] != '<' {
		return false
	}
	loc := htmlTagRe.FindStringIndex(rest)
	if loc == nil {
		return false
	}
	s.pos += loc[1]
	return true
}

func runLength(text string, ch byte) int {
	n := 0
	for n < len(text) && text[n] == ch {
		n++
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isWordByte treats non-ASCII bytes as letters.
func isWordByte(c byte) bool {
	return isAlnum(c) || c >= 0x80
}

// isSpace reports whether c is whitespace or the 0 sentinel used for the
// edges of the text.
func isSpace(c byte) bool {
	return c == 0 || strings.IndexByte(whitespace, c) >= 0
}

func isPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}
