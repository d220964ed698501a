package observer

import (
	"context"
	"log/slog"
	"time"
)

// Interval rescans the whole document periodically. A tick is skipped
// while the engine reports queued work.
type Interval struct {
	period time.Duration
	sink   Sink
	queue  QueueReader
	logger *slog.Logger
}

// NewInterval creates an interval observer. queue may be nil.
func NewInterval(period time.Duration, sink Sink, queue QueueReader, logger *slog.Logger) *Interval {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interval{period: period, sink: sink, queue: queue, logger: logger}
}

// Run ticks until ctx is cancelled.
func (iv *Interval) Run(ctx context.Context) {
	ticker := time.NewTicker(iv.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			iv.tick(ctx)
		}
	}
}

func (iv *Interval) tick(ctx context.Context) {
	if iv.queue != nil {
		q, ok, err := iv.queue.Queue(ctx)
		if err != nil {
			iv.logger.Debug("observer: queue read failed", "error", err)
		}
		if ok && err == nil && !q.Idle() {
			return
		}
	}
	iv.sink.Rescan()
}
