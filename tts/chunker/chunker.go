// Package chunker splits plain text into segments short enough for a speech
// synthesizer to accept as one utterance.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// sentenceFloor is the fraction of the window a sentence split must
	// reach before it is accepted.
	sentenceFloor = 0.5
	// wordFloor is the same threshold for a split at a space.
	wordFloor = 0.3
)

// Result holds the chunks of a text and the offset at which each begins.
type Result struct {
	Chunks  []string `yaml:"chunks"`
	Offsets []int    `yaml:"offsets"`
}

// Split cuts text into chunks of at most maxChars bytes, except for the final
// tail which is kept whole. Each window is split after the last ". " past half
// the window, else after the last space past 30% of it, else at exactly
// maxChars (moved back to a rune boundary). A maxChars of zero or less
// disables splitting. Joining the chunks reproduces text exactly.
func Split(text string, maxChars int) Result {
	if text == "" {
		return Result{}
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return Result{Chunks: []string{text}, Offsets: []int{0}}
	}

	var res Result
	offset := 0
	for offset+maxChars < len(text) {
		cut := splitPoint(text, offset, maxChars)
		res.Chunks = append(res.Chunks, text[offset:offset+cut])
		res.Offsets = append(res.Offsets, offset)
		offset += cut
	}
	res.Chunks = append(res.Chunks, text[offset:])
	res.Offsets = append(res.Offsets, offset)
	return res
}

// splitPoint returns the length of the chunk starting at offset. The caller
// guarantees offset+maxChars < len(text).
func splitPoint(text string, offset, maxChars int) int {
	window := text[offset : offset+maxChars]
	if i := strings.LastIndex(window, ". "); i >= 0 && float64(i) > float64(maxChars)*sentenceFloor {
		return i + 2
	}
	if i := strings.LastIndexByte(window, ' '); i >= 0 && float64(i) > float64(maxChars)*wordFloor {
		return i + 1
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[offset+cut]) {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(text[offset:])
	}
	return cut
}

// IndexOf returns the index of the chunk containing plain offset off, or -1.
func (r Result) IndexOf(off int) int {
	for i := len(r.Offsets) - 1; i >= 0; i-- {
		if off >= r.Offsets[i] {
			if off < r.Offsets[i]+len(r.Chunks[i]) {
				return i
			}
			return -1
		}
	}
	return -1
}
