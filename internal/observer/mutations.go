package observer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/mathdisplay/internal/filter"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// Mutations feeds mutation record batches through the filter into the
// sink.
type Mutations struct {
	filter *filter.Filter
	sink   Sink
	marker MathMarker
	logger *slog.Logger

	batches atomic.Uint64
	records atomic.Uint64
}

// NewMutations creates the mutation observer. marker may be nil.
func NewMutations(f *filter.Filter, sink Sink, marker MathMarker, logger *slog.Logger) *Mutations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutations{filter: f, sink: sink, marker: marker, logger: logger}
}

// Handle processes one batch.
func (m *Mutations) Handle(records []mutation.Record) {
	if len(records) == 0 {
		return
	}
	m.batches.Add(1)
	m.records.Add(uint64(len(records)))

	if m.marker != nil && m.filter.MathAdded(records) {
		m.marker.MarkMathAdded()
	}
	if targets := m.filter.Apply(records); len(targets) > 0 {
		m.sink.Update(targets...)
	}
}

// Run handles batches from ch until ctx is cancelled or ch is closed.
func (m *Mutations) Run(ctx context.Context, ch <-chan []mutation.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-ch:
			if !ok {
				m.logger.Debug("observer: mutation feed closed")
				return
			}
			m.Handle(batch)
		}
	}
}

// Counts returns the number of batches and records handled.
func (m *Mutations) Counts() (batches, records uint64) {
	return m.batches.Load(), m.records.Load()
}
