// Package store provides in-memory state for CommentPipe.
//
// Seen and replied comment identifiers live only for the lifetime of one run;
// nothing here is persisted.
package store

// IDSet is a set of comment identifiers. The zero value is ready to use.
// It is not safe for concurrent use; the monitor that owns it is single-threaded.
type IDSet struct {
	ids map[string]struct{}
}

// NewIDSet returns an empty set, optionally seeded with ids.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was newly added.
func (s *IDSet) Add(id string) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s *IDSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}
