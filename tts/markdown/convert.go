// Package markdown converts markdown source into speakable plain text while
// recording where every plain character came from.
package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/dgnsrekt/readalong/tts/textmap"
)

// Result is the output of a conversion.
type Result struct {
	// Plain is the trimmed, markup-free text.
	Plain string `yaml:"plain"`
	// Map translates offsets in Plain back to source offsets.
	Map textmap.Map `yaml:"map"`
}

// Convert strips markup from source in a single left-to-right pass.
// baseOffset is added to every recorded source offset, which lets callers
// convert a slice of a larger document and still get document offsets.
func Convert(source string, baseOffset int) Result {
	s := &scanner{src: source, base: baseOffset, lineStart: true}
	s.scan(0, len(source))

	plain := s.out.String()
	trimmed := strings.TrimLeft(plain, whitespace)
	lead := len(plain) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, whitespace)
	if trimmed == "" {
		return Result{}
	}

	return Result{
		Plain: trimmed,
		Map:   s.b.Map().TrimStart(lead),
	}
}

const whitespace = " \t\n\r\f\v"

// scanner is the shared state every rule reads and advances.
type scanner struct {
	src  string
	base int

	pos int
	end int

	// lineStart is true until the first non-structural byte of a line.
	lineStart bool

	out strings.Builder
	b   textmap.Builder
}

// scan converts src[start:end]. It is reentrant so rules can convert the
// inner text of links and paired markers with the same rule set.
func (s *scanner) scan(start, end int) {
	savedEnd := s.end
	s.pos, s.end = start, end

	if start == 0 && matchFrontmatter(s) {
		s.lineStart = true
	}

	for s.pos < s.end {
		if s.lineStart {
			if s.try(lineRules) {
				continue
			}
			s.lineStart = false
		}
		if s.try(inlineRules) {
			continue
		}

		switch c := s.src[s.pos]; c {
		case '\n':
			s.space(s.pos)
			s.pos++
			s.lineStart = true
		case '\r':
			s.pos++
		default:
			_, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
			s.emit(s.src[s.pos:s.pos+size], s.pos)
			s.pos += size
		}
	}

	s.end = savedEnd
}

// scanRegion converts src[start:end] and leaves the cursor at resume.
func (s *scanner) scanRegion(start, end, resume int) {
	s.scan(start, end)
	s.pos = resume
}

func (s *scanner) try(rules []rule) bool {
	for _, r := range rules {
		if r.match(s) {
			return true
		}
	}
	return false
}

// rest returns the unscanned part of the current region.
func (s *scanner) rest() string {
	return s.src[s.pos:s.end]
}

// emit appends text that was read from src at srcOff.
func (s *scanner) emit(text string, srcOff int) {
	if text == "" {
		return
	}
	s.b.Add(s.out.Len(), s.base+srcOff)
	s.out.WriteString(text)
}

// space emits a single separating space attributed to srcOff, unless the
// output is empty or already ends in whitespace.
func (s *scanner) space(srcOff int) {
	n := s.out.Len()
	if n == 0 {
		return
	}
	if strings.IndexByte(whitespace, s.out.String()[n-1]) >= 0 {
		return
	}
	s.emit(" ", srcOff)
}

// lineEnd returns the offset of the next newline in the region, or the
// region end.
func (s *scanner) lineEnd(from int) int {
	if i := strings.IndexByte(s.src[from:s.end], '\n'); i >= 0 {
		return from + i
	}
	return s.end
}

// prevByte returns the source byte before pos, or 0 at the start.
func (s *scanner) prevByte() byte {
	if s.pos == 0 {
		return 0
	}
	return s.src[s.pos-1]
}
