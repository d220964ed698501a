// CLAUDE:SUMMARY Injects the page MutationObserver and turns its binding payloads into node-level mutation batches.
package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/page"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// BindingName is the CDP binding the injected observer reports through.
const BindingName = "__mathdisplay_binding"

//go:embed observer.js
var observerJS string

// Bridge connects the in-page MutationObserver to Go. Payloads arrive via
// Deliver (called from the driver's binding listener) and come out of
// Records as node-level batches, in page order.
type Bridge struct {
	rt        page.Runtime
	mirror    *Mirror
	container string
	logger    *slog.Logger

	payloads chan string
	out      chan []mutation.Record
	dropped  atomic.Uint64
}

// NewBridge creates a Bridge observing the element matched by container
// (CSS selector; empty: .h5p-container, else the body).
func NewBridge(rt page.Runtime, container string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		rt:        rt,
		mirror:    NewMirror(),
		container: container,
		logger:    logger,
		payloads:  make(chan string, 1024),
		out:       make(chan []mutation.Record, 64),
	}
}

// Mirror returns the node mirror.
func (b *Bridge) Mirror() *Mirror { return b.mirror }

// Records returns the channel of mutation batches. It is closed when Run
// returns.
func (b *Bridge) Records() <-chan []mutation.Record { return b.out }

// Dropped returns how many payloads were dropped on overflow.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

// Deliver hands a binding payload to the bridge. It never blocks: driver
// event callbacks must return quickly.
func (b *Bridge) Deliver(payload string) {
	select {
	case b.payloads <- payload:
	default:
		b.dropped.Add(1)
		b.logger.Warn("browser: observer payload dropped, queue full")
	}
}

// Inject installs the observer in the page. Idempotent.
func (b *Bridge) Inject(ctx context.Context) error {
	setup := fmt.Sprintf("() => { window.__mathdisplay_container = %s; return true; }", page.Literal(b.container))
	if _, err := b.rt.Eval(ctx, setup); err != nil {
		return fmt.Errorf("browser: observer setup: %w", err)
	}
	if _, err := b.rt.Eval(ctx, observerJS); err != nil {
		return fmt.Errorf("browser: inject observer.js: %w", err)
	}
	b.logger.Debug("browser: observer injected", "container", b.container)
	return nil
}

// Root returns the observed element.
func (b *Bridge) Root(ctx context.Context) (dom.Node, error) {
	raw, err := b.rt.Eval(ctx, "() => window.__mathdisplay.root()")
	if err != nil {
		return nil, fmt.Errorf("browser: observer root: %w", err)
	}
	var chain []mutation.WireNode
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("browser: decode observer root: %w", err)
	}
	return b.mirror.Register(chain), nil
}

// Run converts payloads to batches until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.out)
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-b.payloads:
			records, err := b.decode(p)
			if err != nil {
				b.logger.Warn("browser: parse observer payload", "error", err)
				continue
			}
			if len(records) == 0 {
				continue
			}
			select {
			case b.out <- records:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Bridge) decode(payload string) ([]mutation.Record, error) {
	wires, err := mutation.UnmarshalWire([]byte(payload))
	if err != nil {
		return nil, err
	}
	return b.mirror.Records(wires), nil
}
