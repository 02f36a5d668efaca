package domain

import "strings"

// Category is a display label a task may reference. No hierarchy.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CategoryDraft is the payload for creating a category.
type CategoryDraft struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Validate checks the draft before it is sent.
func (d CategoryDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name must not be empty"}
	}
	return nil
}
