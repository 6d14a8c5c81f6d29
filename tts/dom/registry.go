package dom

import (
	"sort"

	"golang.org/x/net/html"
)

// Registry holds named highlight ranges without touching the document.
// Renderers ask it which parts of a text node are highlighted. The zero
// value is an empty registry.
type Registry struct {
	ranges map[string][]Segment
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ranges: make(map[string][]Segment)}
}

// Set replaces the range registered under name.
func (r *Registry) Set(name string, rng Range) error {
	segs, err := rng.Segments()
	if err != nil {
		return err
	}
	if r.ranges == nil {
		r.ranges = make(map[string][]Segment)
	}
	r.ranges[name] = segs
	return nil
}

// Delete removes the range registered under name.
func (r *Registry) Delete(name string) {
	delete(r.ranges, name)
}

// Clear removes every range.
func (r *Registry) Clear() {
	clear(r.ranges)
}

// Len returns the number of registered ranges.
func (r *Registry) Len() int {
	return len(r.ranges)
}

// Has reports whether a range is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.ranges[name]
	return ok
}

// Lookup returns the highlighted spans of node ordered by start.
func (r *Registry) Lookup(node *html.Node) []Segment {
	if r == nil {
		return nil
	}
	var out []Segment
	for _, segs := range r.ranges {
		for _, s := range segs {
			if s.Node == node {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// First returns the first node of the range registered under name.
func (r *Registry) First(name string) *html.Node {
	if segs := r.ranges[name]; len(segs) > 0 {
		return segs[0].Node
	}
	return nil
}
