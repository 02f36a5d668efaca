// Package store holds the client-side snapshot of the server-owned task
// and category collections. It is the single source of truth for
// rendering between refreshes.
package store

import (
	"sync"

	"taskboard/domain"
)

// NoCategoryLabel is what a task without a resolvable category displays.
const NoCategoryLabel = "No category"

// Store is the entity cache. Collections are replaced wholesale on every
// load, never merged field by field, so stale client-side edits cannot
// leak into a later render. Registered replace hooks run after each task
// load; the controller uses them to prune the selection and request a
// re-render.
type Store struct {
	mu         sync.RWMutex
	tasks      []domain.Task
	categories []domain.Category
	catByID    map[int64]domain.Category

	hookMu    sync.Mutex
	onReplace []func()
}

func New() *Store {
	return &Store{catByID: make(map[int64]domain.Category)}
}

// OnReplace registers a hook invoked after every task collection replace.
func (s *Store) OnReplace(fn func()) {
	if fn == nil {
		return
	}
	s.hookMu.Lock()
	s.onReplace = append(s.onReplace, fn)
	s.hookMu.Unlock()
}

// Load replaces the task collection with the given snapshot.
func (s *Store) Load(tasks []domain.Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks[:0:0], tasks...)
	s.mu.Unlock()

	s.hookMu.Lock()
	hooks := append(make([]func(), 0, len(s.onReplace)), s.onReplace...)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// LoadCategories replaces the category collection.
func (s *Store) LoadCategories(categories []domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories[:0:0], categories...)
	s.catByID = make(map[int64]domain.Category, len(categories))
	for _, c := range categories {
		s.catByID[c.ID] = c
	}
}

// Tasks returns the current snapshot. Never nil.
func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Categories returns the current snapshot. Never nil.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Len reports the number of tasks in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// TaskIDs returns the identifiers of the rendered tasks, in order.
func (s *Store) TaskIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, len(s.tasks))
	for i, t := range s.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Task looks a task up by id in the snapshot.
func (s *Store) Task(id int64) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Category looks a category up by id.
func (s *Store) Category(id int64) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catByID[id]
	return c, ok
}

// CategoryName resolves a task's category to a display label. A task with
// no reference, or with a reference whose category has since been
// deleted, degrades to NoCategoryLabel instead of failing.
func (s *Store) CategoryName(t domain.Task) string {
	if t.CategoryID == nil {
		return NoCategoryLabel
	}
	s.mu.RLock()
	c, ok := s.catByID[*t.CategoryID]
	s.mu.RUnlock()
	if ok && c.Name != "" {
		return c.Name
	}
	if t.Category != nil && t.Category.Name != "" {
		return t.Category.Name
	}
	return NoCategoryLabel
}
