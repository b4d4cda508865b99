package model

// IDSet is a set of opaque string identifiers that remembers insertion order,
// so it can be persisted as a stable list.
// The zero value is not usable; construct with NewIDSet.
type IDSet struct {
	order []string
	index map[string]struct{}
}

// NewIDSet builds a set from ids, dropping duplicates and keeping the first
// occurrence of each.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{
		order: make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is a member.
func (s *IDSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Add inserts id and reports whether it was not already present.
func (s *IDSet) Add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Len returns the number of members.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Items returns the members in insertion order. The returned slice is a copy.
func (s *IDSet) Items() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy of the set. Cloning nil yields an empty set.
func (s *IDSet) Clone() *IDSet {
	if s == nil {
		return NewIDSet()
	}
	return NewIDSet(s.order...)
}
