package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/hejijunhao/scalr/internal/output"
)

// Multi sends every failure report to several destinations, e.g. stdout plus
// a webhook. A failing destination does not stop delivery to the others.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over outputs, in delivery order. Nil outputs are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{outputs: make([]output.Output, 0, len(outputs))}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Write delivers r to every destination. Errors name the failing destination
// by position and are joined.
func (m *Multi) Write(ctx context.Context, r output.Report) error {
	return m.each(func(o output.Output) error { return o.Write(ctx, r) })
}

// Close closes every destination, even after one fails.
func (m *Multi) Close() error {
	return m.each(output.Output.Close)
}

func (m *Multi) each(fn func(output.Output) error) error {
	var errs []error
	for i, o := range m.outputs {
		if err := fn(o); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
