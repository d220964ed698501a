package observer

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/mathdisplay/dom"
)

// Event is a host "domChanged" signal.
type Event struct {
	// Target is the changed subtree; nil means unknown, rescan the
	// whole document.
	Target dom.Node
	// Library names the host content type that changed, informational.
	Library string
}

// DOMChanged turns host domChanged events into updates.
type DOMChanged struct {
	sink   Sink
	logger *slog.Logger
}

// NewDOMChanged creates the listener.
func NewDOMChanged(sink Sink, logger *slog.Logger) *DOMChanged {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOMChanged{sink: sink, logger: logger}
}

// Handle processes one event.
func (d *DOMChanged) Handle(ev Event) {
	if ev.Target == nil {
		d.sink.Rescan()
		return
	}
	d.sink.Update(ev.Target)
}

// Run handles events from ch until ctx is cancelled or ch is closed.
func (d *DOMChanged) Run(ctx context.Context, ch <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.logger.Debug("observer: domChanged", "library", ev.Library, "targeted", ev.Target != nil)
			d.Handle(ev)
		}
	}
}
