package sink

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/hejijunhao/scalr/internal/metrics"
	"github.com/hejijunhao/scalr/internal/model"
)

// Registry routes entries to sinks by identity. Membership is fixed at
// construction: routing never creates a sink. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Sink
	order   []*Sink
	metrics *metrics.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics counts delivered and dropped entries on m.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a Registry over sinks. A later sink with a duplicate
// identity is ignored.
func NewRegistry(sinks []*Sink, opts ...RegistryOption) *Registry {
	r := &Registry{byID: make(map[string]*Sink, len(sinks))}
	for _, s := range sinks {
		if _, dup := r.byID[s.ID()]; dup {
			slog.Warn("duplicate sink ignored", "sink", s.ID())
			continue
		}
		r.byID[s.ID()] = s
		r.order = append(r.order, s)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForIDs creates a Registry with one empty sink per id.
func ForIDs(ids []string, opts ...RegistryOption) *Registry {
	sinks := make([]*Sink, 0, len(ids))
	for _, id := range ids {
		sinks = append(sinks, New(id))
	}
	return NewRegistry(sinks, opts...)
}

// Route appends e to the sink registered under id and reports whether it did.
// Entries for unregistered ids are dropped without error. Nil entries are
// dropped for every id.
func (r *Registry) Route(id string, e model.LogEntry) bool {
	if e == nil {
		r.metrics.ObserveRoute(false)
		slog.Debug("nil entry dropped", "sink", id)
		return false
	}

	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()

	r.metrics.ObserveRoute(ok)
	if !ok {
		slog.Debug("no sink for entry, dropped", "sink", id, "kind", e.Kind())
		return false
	}
	s.Append(e)
	return true
}

// RouteAll routes every entry by its server ID and returns how many were
// delivered. Nil entries have no server ID and are skipped.
func (r *Registry) RouteAll(entries []model.LogEntry) int {
	n := 0
	for _, e := range entries {
		if e == nil {
			continue
		}
		if r.Route(e.ServerID(), e) {
			n++
		}
	}
	return n
}

// Sink returns the sink registered under id.
func (r *Registry) Sink(id string) (*Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Sinks returns all sinks in registration order.
func (r *Registry) Sinks() []*Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
