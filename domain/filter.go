package domain

import "net/url"

// CategoryNone filters for tasks without a category reference.
const CategoryNone = "none"

// FilterSpec is the ephemeral query derived from the filter controls.
// The zero value matches everything; an absent dimension means "match
// all", never "match none".
type FilterSpec struct {
	// Search is a case-insensitive substring match on content.
	Search string
	// Completed is tri-state: nil matches any completion state.
	Completed *bool
	// Category is empty (any), CategoryNone, or a category id.
	Category string
	// Priority is empty (any) or one of the three priorities.
	Priority Priority
}

// IsZero reports whether no dimension is constrained.
func (f FilterSpec) IsZero() bool {
	return f.Search == "" && f.Completed == nil && f.Category == "" && f.Priority == ""
}

// Query serializes the spec as GET /api/tasks query constraints. Only
// active dimensions produce keys.
func (f FilterSpec) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Completed != nil {
		if *f.Completed {
			q.Set("completed", "true")
		} else {
			q.Set("completed", "false")
		}
	}
	if f.Category != "" {
		q.Set("category_id", f.Category)
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	return q
}

// Key is a stable identity for the spec, used as a cache key.
func (f FilterSpec) Key() string {
	return f.Query().Encode()
}
