package controller

import (
	"strings"

	"taskboard/domain"
)

// FilterInputs are the raw values of the filter controls. Each control's
// "no filter" sentinel ("", "any" or "all") omits that dimension from the
// built spec entirely.
type FilterInputs struct {
	Search    string
	Completed string // "", "any", "true", "false"
	Category  string // "", "all", "none", or a category id
	Priority  string // "", "any", "high", "medium", "low"
}

// BuildFilter derives a filter spec from the current control values. It
// is a pure function: inputs are never mutated, search text is trimmed,
// and inactive dimensions produce no constraint.
func BuildFilter(in FilterInputs) domain.FilterSpec {
	spec := domain.FilterSpec{Search: strings.TrimSpace(in.Search)}

	switch strings.ToLower(strings.TrimSpace(in.Completed)) {
	case "true":
		completed := true
		spec.Completed = &completed
	case "false":
		completed := false
		spec.Completed = &completed
	}

	category := strings.TrimSpace(in.Category)
	if category != "" && !strings.EqualFold(category, "all") && !strings.EqualFold(category, "any") {
		spec.Category = category
	}

	priority := domain.Priority(strings.ToLower(strings.TrimSpace(in.Priority)))
	if priority.Valid() {
		spec.Priority = priority
	}

	return spec
}
