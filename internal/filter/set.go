package filter

import "github.com/hazyhaar/mathdisplay/dom"

// Set is the ordered set of nodes queued for the next typeset pass. No
// member is an ancestor or descendant of another, and no member appears
// twice. Duplicate element trees in the engine's queue lead to broken
// output, so every insertion goes through Add.
type Set struct {
	nodes []dom.Node
}

// NewSet returns an empty Set.
func NewSet() *Set { return &Set{} }

// Add inserts n unless it is already covered by a member. Members that n
// covers are dropped. It returns whether n was inserted.
func (s *Set) Add(n dom.Node) bool {
	if n == nil {
		return false
	}
	for _, m := range s.nodes {
		if dom.Covers(m, n) {
			return false
		}
	}

	kept := s.nodes[:0]
	for _, m := range s.nodes {
		if !dom.IsAncestor(n, m) {
			kept = append(kept, m)
		}
	}
	s.nodes = append(kept, n)
	return true
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.nodes) }

// Nodes returns a copy of the members in insertion order.
func (s *Set) Nodes() []dom.Node {
	out := make([]dom.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Drain returns the members and empties the set in one step.
func (s *Set) Drain() []dom.Node {
	out := s.nodes
	s.nodes = nil
	return out
}
