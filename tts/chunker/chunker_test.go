package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSplit tests chunk selection for the three split priorities.
func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		chunks  []string
		offsets []int
	}{
		{
			name:    "fits",
			text:    "short text",
			max:     20,
			chunks:  []string{"short text"},
			offsets: []int{0},
		},
		{
			name:    "unlimited",
			text:    "no limit at all",
			max:     0,
			chunks:  []string{"no limit at all"},
			offsets: []int{0},
		},
		{
			name:    "word boundary",
			text:    "one two three four five",
			max:     10,
			chunks:  []string{"one two ", "three ", "four five"},
			offsets: []int{0, 8, 14},
		},
		{
			name:    "sentence boundary",
			text:    "First sentence. Second one here",
			max:     20,
			chunks:  []string{"First sentence. ", "Second one here"},
			offsets: []int{0, 16},
		},
		{
			name:    "sentence too early falls back to space",
			text:    "Hi. then a long run of words",
			max:     20,
			chunks:  []string{"Hi. then a long run ", "of words"},
			offsets: []int{0, 20},
		},
		{
			name:    "hard cut",
			text:    "abcdefghijklmnop",
			max:     5,
			chunks:  []string{"abcde", "fghij", "klmno", "p"},
			offsets: []int{0, 5, 10, 15},
		},
		{
			name:    "space too early forces hard cut",
			text:    "a bcdefghijklm",
			max:     6,
			chunks:  []string{"a bcde", "fghijk", "lm"},
			offsets: []int{0, 6, 12},
		},
		{
			name:    "empty",
			text:    "",
			max:     10,
			chunks:  nil,
			offsets: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.max)
			if !reflect.DeepEqual(got.Chunks, tt.chunks) {
				t.Errorf("Split(%q, %d).Chunks = %q, want %q", tt.text, tt.max, got.Chunks, tt.chunks)
			}
			if !reflect.DeepEqual(got.Offsets, tt.offsets) {
				t.Errorf("Split(%q, %d).Offsets = %v, want %v", tt.text, tt.max, got.Offsets, tt.offsets)
			}
		})
	}
}

// TestSplitHardCutRuneBoundary tests that hard cuts never split a rune.
func TestSplitHardCutRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 10) // two bytes each
	got := Split(text, 5)
	for i, c := range got.Chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d = %q is not valid UTF-8", i, c)
		}
	}
	if strings.Join(got.Chunks, "") != text {
		t.Errorf("joined chunks = %q, want %q", strings.Join(got.Chunks, ""), text)
	}
}

// TestSplitProperties tests concatenation, offsets and the size bound.
func TestSplitProperties(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	for _, max := range []int{20, 37, 64, 250} {
		got := Split(text, max)

		if joined := strings.Join(got.Chunks, ""); joined != text {
			t.Fatalf("Split(_, %d): joined chunks differ from input", max)
		}
		for i, c := range got.Chunks {
			if text[got.Offsets[i]:got.Offsets[i]+len(c)] != c {
				t.Errorf("Split(_, %d): chunk %d not at offset %d", max, i, got.Offsets[i])
			}
			if i < len(got.Chunks)-1 {
				if len(c) > max {
					t.Errorf("Split(_, %d): chunk %d has %d bytes", max, i, len(c))
				}
				if !strings.HasSuffix(c, " ") {
					t.Errorf("Split(_, %d): chunk %d = %q splits a word", max, i, c)
				}
			}
		}
	}
}

// TestIndexOf tests locating the chunk that holds a plain offset.
func TestIndexOf(t *testing.T) {
	r := Split("one two three four five", 10)
	tests := []struct {
		off  int
		want int
	}{
		{0, 0}, {7, 0}, {8, 1}, {13, 1}, {14, 2}, {22, 2}, {23, -1}, {-1, -1},
	}
	for _, tt := range tests {
		if got := r.IndexOf(tt.off); got != tt.want {
			t.Errorf("IndexOf(%d) = %d, want %d", tt.off, got, tt.want)
		}
	}
}
