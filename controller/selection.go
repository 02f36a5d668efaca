package controller

import (
	"sort"
	"sync"
)

// TriState is the derived state of the "select all" control.
type TriState int

const (
	Unchecked TriState = iota
	Indeterminate
	Checked
)

// Selection tracks the set of checked task identifiers. It is ephemeral:
// membership only means anything against the currently rendered list, so
// it is pruned whenever the task snapshot is replaced.
type Selection struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

// Toggle flips membership for one id.
func (s *Selection) Toggle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAll replaces the set with the given ids.
func (s *Selection) SelectAll(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the set.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{})
}

// Remove drops one id, if present.
func (s *Selection) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Has reports membership for one id.
func (s *Selection) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IsEmpty reports whether nothing is selected.
func (s *Selection) IsEmpty() bool {
	return s.Count() == 0
}

// Count reports the number of selected ids.
func (s *Selection) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IsAll reports whether every rendered task is selected.
func (s *Selection) IsAll(total int) bool {
	count := s.Count()
	return total > 0 && count == total
}

// State derives the tri-state for the "select all" control: empty is
// unchecked, full is checked, anything between is indeterminate.
func (s *Selection) State(total int) TriState {
	count := s.Count()
	switch {
	case count == 0:
		return Unchecked
	case count == total:
		return Checked
	default:
		return Indeterminate
	}
}

// IDs returns the selected identifiers in ascending order.
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Prune drops every id not present in the valid universe. Called after
// each task snapshot replace so the selection never references a task
// that is no longer rendered.
func (s *Selection) Prune(valid []int64) {
	validSet := make(map[int64]struct{}, len(valid))
	for _, id := range valid {
		validSet[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if _, ok := validSet[id]; !ok {
			delete(s.ids, id)
		}
	}
}
