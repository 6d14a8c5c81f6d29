// Package textmap maps offsets in derived plain text back to offsets in the
// formatted source it was produced from.
//
// A Map is a sparse list of anchors. Each anchor asserts that a plain offset
// corresponds to a source offset and that the relationship stays affine
// (source = anchor.Source + (plain - anchor.Plain)) until the next anchor.
// Anchors are only recorded where that relationship breaks, so the size of a
// map grows with the number of markup jumps, not with the length of the text.
package textmap

import (
	"fmt"
	"sort"
)

// Entry is a single anchor of a Map.
type Entry struct {
	Plain  int `yaml:"plain"`
	Source int `yaml:"source"`
}

// delta returns the source-minus-plain displacement of the anchor.
func (e Entry) delta() int {
	return e.Source - e.Plain
}

// Map is an ordered list of anchors, strictly increasing in Plain.
type Map []Entry

// EditorRange is a half-open [From, To) range of source offsets.
type EditorRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Len returns the number of source bytes covered by the range.
func (r EditorRange) Len() int {
	return r.To - r.From
}

// IsEmpty reports whether the range covers nothing.
func (r EditorRange) IsEmpty() bool {
	return r.To <= r.From
}

// Contains reports whether off lies within the range.
func (r EditorRange) Contains(off int) bool {
	return off >= r.From && off < r.To
}

// Intersects reports whether two ranges overlap by at least one byte.
func (r EditorRange) Intersects(other EditorRange) bool {
	return r.From < other.To && other.From < r.To
}

func (r EditorRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// Builder accumulates a Map one emitted plain character at a time while
// keeping only the anchors where the displacement changes.
type Builder struct {
	entries []Entry
}

// Add records that plain offset plain was produced from source offset
// source. Calls must have strictly increasing plain offsets.
func (b *Builder) Add(plain, source int) {
	e := Entry{Plain: plain, Source: source}
	if n := len(b.entries); n > 0 && b.entries[n-1].delta() == e.delta() {
		return
	}
	b.entries = append(b.entries, e)
}

// Len returns the number of anchors recorded so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Map returns the accumulated anchors.
func (b *Builder) Map() Map {
	return Map(b.entries)
}

// Lookup returns the source offset for plainIndex using the greatest anchor
// at or before it. Offsets before the first anchor clamp to the first
// anchor's source offset. An empty map returns plainIndex unchanged.
func (m Map) Lookup(plainIndex int) int {
	if len(m) == 0 {
		return plainIndex
	}
	i := sort.Search(len(m), func(i int) bool {
		return m[i].Plain > plainIndex
	}) - 1
	if i < 0 {
		return m[0].Source
	}
	return m[i].Source + (plainIndex - m[i].Plain)
}

// ToRange maps the plain range [plainFrom, plainTo) to a source range. The
// end is derived from the last covered character, so a range over markup-free
// text maps to exactly the source span that produced it. ok is false when the
// map is empty.
func (m Map) ToRange(plainFrom, plainTo int) (r EditorRange, ok bool) {
	if len(m) == 0 {
		return EditorRange{}, false
	}
	if plainTo <= plainFrom {
		plainTo = plainFrom + 1
	}
	from := m.Lookup(plainFrom)
	to := m.Lookup(plainTo-1) + 1
	if to <= from {
		// Characters that came from out-of-order source positions
		// (e.g. a wikilink display segment) can invert the range.
		to = from + (plainTo - plainFrom)
	}
	return EditorRange{From: from, To: to}, true
}

// TrimStart drops the first n plain characters and shifts every anchor so
// that plain offset n becomes 0.
func (m Map) TrimStart(n int) Map {
	if n <= 0 || len(m) == 0 {
		return m
	}
	var b Builder
	b.Add(0, m.Lookup(n))
	for _, e := range m {
		if e.Plain > n {
			b.Add(e.Plain-n, e.Source)
		}
	}
	return b.Map()
}

// Validate reports an error if the anchors are not strictly increasing in
// plain offsets.
func (m Map) Validate() error {
	for i := 1; i < len(m); i++ {
		if m[i].Plain <= m[i-1].Plain {
			return fmt.Errorf("anchor %d: plain offset %d does not follow %d", i, m[i].Plain, m[i-1].Plain)
		}
	}
	return nil
}
