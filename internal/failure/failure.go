// Package failure classifies failed log entries against known failure signatures.
package failure

import (
	"slices"

	"github.com/hejijunhao/scalr/internal/model"
)

// Category is a diagnostic bucket for a failure.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Remedy      string `json:"remedy,omitempty"`
}

// Generic is assigned when no pattern matches.
var Generic = Category{
	Name:        "generic",
	Description: "Failure with no known signature",
}

// Pattern recognizes one failure signature.
type Pattern interface {
	Category() Category
	Matches(e model.LogEntry) bool
}

// Failure is a classified log entry. It embeds the entry, so every LogEntry
// accessor reads straight through to it. The category list is fixed at
// construction and never empty.
type Failure struct {
	model.LogEntry
	owner      any
	categories []Category
}

// Owner returns the context the failure was classified for, typically a server ID.
func (f *Failure) Owner() any { return f.owner }

// Entry returns the underlying log entry.
func (f *Failure) Entry() model.LogEntry { return f.LogEntry }

// Categories returns the matched categories in pattern registration order.
func (f *Failure) Categories() []Category {
	return slices.Clone(f.categories)
}

// Has reports whether a category with the given name was matched.
func (f *Failure) Has(name string) bool {
	return slices.ContainsFunc(f.categories, func(c Category) bool { return c.Name == name })
}

// IsGeneric reports whether no specific pattern matched.
func (f *Failure) IsGeneric() bool {
	return len(f.categories) == 1 && f.categories[0] == Generic
}
