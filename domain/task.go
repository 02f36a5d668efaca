package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the wire representation of a task priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a wire string to a Priority, falling back to medium
// for empty or unknown values the way the backend does.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Date is a calendar date. It marshals as an ISO date and accepts both
// plain dates and full timestamps on decode, since the backend echoes
// datetimes in isoformat.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date or timestamp.
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{dateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a single list entry as served by the backend. CategoryID is a
// weak reference: the category it names may have been deleted since the
// task was fetched.
type Task struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Completed  bool      `json:"completed"`
	Priority   Priority  `json:"priority"`
	StartDate  *Date     `json:"start_date"`
	DueDate    *Date     `json:"due_date"`
	CategoryID *int64    `json:"category_id"`
	Category   *Category `json:"category,omitempty"`
	Order      int       `json:"order"`
	CreatedAt  string    `json:"created_at,omitempty"`
	UpdatedAt  string    `json:"updated_at,omitempty"`
}

// TaskDraft is the payload for creating a task. Absent optional fields
// are encoded as explicit nulls so the backend can tell "cleared" from
// "unspecified".
type TaskDraft struct {
	Content    string   `json:"content"`
	Priority   Priority `json:"priority"`
	StartDate  *Date    `json:"start_date"`
	DueDate    *Date    `json:"due_date"`
	CategoryID *int64   `json:"category_id"`
}

// Validate checks a draft before it is allowed anywhere near the network.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return &ValidationError{Field: "content", Reason: "content must not be empty"}
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", d.Priority)}
	}
	if d.StartDate != nil && d.DueDate != nil && d.StartDate.After(d.DueDate.Time) {
		return &ValidationError{Field: "due_date", Reason: "due date precedes start date"}
	}
	return nil
}

// OptionalDate distinguishes "leave unchanged" (Set false) from "set to
// Value" and "clear" (Set true, Value nil) in a partial update.
type OptionalDate struct {
	Set   bool
	Value *Date
}

// OptionalID is OptionalDate for category references.
type OptionalID struct {
	Set   bool
	Value *int64
}

// TaskPatch carries only the fields an update intends to change.
type TaskPatch struct {
	Content    *string
	Completed  *bool
	Priority   *Priority
	Order      *int
	StartDate  OptionalDate
	DueDate    OptionalDate
	CategoryID OptionalID
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Content == nil && p.Completed == nil && p.Priority == nil &&
		p.Order == nil && !p.StartDate.Set && !p.DueDate.Set && !p.CategoryID.Set
}

// Fields renders the patch as the JSON object body for PUT /api/tasks/{id},
// including only the fields being changed. Cleared optionals become
// explicit nulls.
func (p TaskPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Content != nil {
		fields["content"] = *p.Content
	}
	if p.Completed != nil {
		fields["completed"] = *p.Completed
	}
	if p.Priority != nil {
		fields["priority"] = *p.Priority
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	if p.StartDate.Set {
		fields["start_date"] = p.StartDate.Value
	}
	if p.DueDate.Set {
		fields["due_date"] = p.DueDate.Value
	}
	if p.CategoryID.Set {
		fields["category_id"] = p.CategoryID.Value
	}
	return fields
}

// Validate rejects patches that would fail backend validation anyway.
func (p TaskPatch) Validate() error {
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return &ValidationError{Field: "content", Reason: "content must not be empty"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", *p.Priority)}
	}
	if p.StartDate.Set && p.DueDate.Set && p.StartDate.Value != nil && p.DueDate.Value != nil &&
		p.StartDate.Value.After(p.DueDate.Value.Time) {
		return &ValidationError{Field: "due_date", Reason: "due date precedes start date"}
	}
	return nil
}

// ValidationError reports locally rejected input. No request is issued
// for an operation that fails validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
