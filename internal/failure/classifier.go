package failure

import (
	"slices"

	"github.com/hejijunhao/scalr/internal/model"
)

// Classifier tests entries against an ordered pattern registry. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	patterns []Pattern
}

// New creates a Classifier over patterns, tested in the given order.
func New(patterns ...Pattern) *Classifier {
	return &Classifier{patterns: slices.Clone(patterns)}
}

// Default creates a Classifier over DefaultPatterns.
func Default() *Classifier {
	return New(DefaultPatterns()...)
}

// Patterns returns the registry in test order.
func (c *Classifier) Patterns() []Pattern {
	return slices.Clone(c.patterns)
}

// Classify wraps e with every matching category, in registration order.
// Every pattern is tested; when none matches the result holds only Generic.
func (c *Classifier) Classify(owner any, e model.LogEntry) *Failure {
	var cats []Category
	for _, p := range c.patterns {
		if p.Matches(e) {
			cats = append(cats, p.Category())
		}
	}
	if len(cats) == 0 {
		cats = []Category{Generic}
	}
	return &Failure{LogEntry: e, owner: owner, categories: cats}
}

// ClassifyAll classifies entries with a shared owner.
func (c *Classifier) ClassifyAll(owner any, entries []model.LogEntry) []*Failure {
	out := make([]*Failure, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.Classify(owner, e))
	}
	return out
}
