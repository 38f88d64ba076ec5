package document

import "iter"

// Set is a content-addressed set of edges. Edges are bucketed by their xxhash
// and compared byte-wise inside a bucket, so structurally identical documents
// collapse into one entry regardless of where their bytes live.
//
// The zero value is an empty set ready to use. Not safe for concurrent use.
type Set struct {
	buckets map[uint64][]int
	edges   []Edge
}

// NewSet returns an empty set sized for n edges.
func NewSet(n int) *Set {
	return &Set{
		buckets: make(map[uint64][]int, n),
		edges:   make([]Edge, 0, n),
	}
}

// Add inserts e and reports whether it was not already present.
func (s *Set) Add(e Edge) bool {
	if s.buckets == nil {
		s.buckets = make(map[uint64][]int)
	}
	for _, i := range s.buckets[e.hash] {
		if s.edges[i].Equal(e) {
			return false
		}
	}
	s.buckets[e.hash] = append(s.buckets[e.hash], len(s.edges))
	s.edges = append(s.edges, e)
	return true
}

func (s *Set) Contains(e Edge) bool {
	for _, i := range s.buckets[e.hash] {
		if s.edges[i].Equal(e) {
			return true
		}
	}
	return false
}

func (s *Set) Len() int { return len(s.edges) }

// Edges returns the members in insertion order.
func (s *Set) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// All iterates the members in insertion order.
func (s *Set) All() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, e := range s.edges {
			if !yield(e) {
				return
			}
		}
	}
}
