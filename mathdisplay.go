// Package mathdisplay typesets math in dynamically changing HTML content
// and tells the host when the layout settled.
//
// A Display watches DOM mutations (or host domChanged signals, or a
// timer), keeps the subtrees that may hold math, batches them behind a
// cooldown into single-flight engine passes (MathJax 3, MathJax 2 or
// KaTeX) and raises one host resize per pass that produced math.
package mathdisplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/coalescer"
	"github.com/hazyhaar/mathdisplay/internal/config"
	"github.com/hazyhaar/mathdisplay/internal/engine"
	"github.com/hazyhaar/mathdisplay/internal/filter"
	"github.com/hazyhaar/mathdisplay/internal/host"
	"github.com/hazyhaar/mathdisplay/internal/notify"
	"github.com/hazyhaar/mathdisplay/internal/observer"
	"github.com/hazyhaar/mathdisplay/internal/page"
	"github.com/hazyhaar/mathdisplay/mathdetect"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// ErrNoRuntime is returned by Start when no engine was given and there is
// no page runtime to load one into.
var ErrNoRuntime = errors.New("mathdisplay: no page runtime to load the engine into")

// Display is one math display controller. All state is owned by the
// instance.
type Display struct {
	cfg     *config.Config
	variant engine.Variant
	logger  *slog.Logger

	host      host.Host
	rt        page.Runtime
	prober    notify.Prober
	fallback  notify.Fallback
	eng       engine.Engine
	container dom.Node
	records   <-chan []mutation.Record

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	coal      *coalescer.Coalescer
	notifier  *notify.Notifier
	observers *observer.Set

	active atomic.Bool
	reason atomic.Value // string: why the display is inert
}

// Option configures a Display.
type Option func(*Display)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Display) { d.logger = l }
}

// WithHost sets the host receiving resize events and session reports.
func WithHost(h Host) Option {
	return func(d *Display) { d.host = h }
}

// WithRuntime attaches the page the engine is loaded into. It also
// provides the marker probe and the window resize fallback unless those
// are set explicitly.
func WithRuntime(rt page.Runtime) Option {
	return func(d *Display) { d.rt = rt }
}

// WithProber sets the probe used to check rendered output for markers.
func WithProber(p notify.Prober) Option {
	return func(d *Display) { d.prober = p }
}

// WithFallback sets the resize fallback used when no host receives it.
func WithFallback(f notify.Fallback) Option {
	return func(d *Display) { d.fallback = f }
}

// WithEngine uses an already available engine instead of loading one.
func WithEngine(e engine.Engine) Option {
	return func(d *Display) { d.eng = e }
}

// WithContainer restricts observation to the subtree of n.
func WithContainer(n dom.Node) Option {
	return func(d *Display) { d.container = n }
}

// WithDocument works on an in-memory document: it becomes the marker
// probe, and the configured container selector (default .h5p-container)
// is resolved in it.
func WithDocument(doc *dom.Document) Option {
	return func(d *Display) {
		d.prober = doc
		sel := d.cfg.Container
		if sel == "" {
			sel = ".h5p-container"
		}
		if n := doc.First(sel); n != nil {
			d.container = n
		}
	}
}

// WithRecords sets the live mutation feed of the mutationObserver.
func WithRecords(ch <-chan []mutation.Record) Option {
	return func(d *Display) { d.records = ch }
}

// New creates a Display. cfg may be nil for the defaults.
func New(cfg *Config, opts ...Option) (*Display, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	v, err := engine.Lookup(cfg.Renderer.Engine)
	if err != nil {
		return nil, err
	}
	d := &Display{
		cfg:     cfg,
		variant: v.With(cfg.Renderer.Settings()),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.rt != nil {
		if d.prober == nil {
			d.prober = page.NewProber(d.rt)
		}
		if d.fallback == nil {
			d.fallback = page.NewWindowResize(d.rt)
		}
	}
	d.reason.Store("not started")
	return d, nil
}

// Start brings the display up: params gate, engine load, observers, and
// an initial whole-document pass. When the params hold no math, or the
// engine cannot be loaded, the display stays inert; the load error is
// returned but nothing else is affected.
func (d *Display) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("mathdisplay: already started")
	}
	d.started = true

	if d.cfg.Params != nil && !mathdetect.ContainsMath(d.cfg.Params) {
		d.reason.Store("no math in params")
		d.logger.Info("mathdisplay: no math in content params, engine not loaded")
		return nil
	}

	eng := d.eng
	if eng == nil {
		if d.rt == nil {
			d.reason.Store("no runtime")
			return ErrNoRuntime
		}
		loader := engine.NewLoader(d.rt, d.variant,
			engine.WithPollInterval(d.cfg.Loader.PollInterval.Duration()),
			engine.WithPollAttempts(d.cfg.Loader.PollAttempts),
			engine.WithLogger(d.logger))
		h, err := loader.Load(ctx)
		if err != nil {
			d.reason.Store("engine load failed")
			d.logger.Error("mathdisplay: engine load failed", "engine", d.variant.Name, "error", err)
			return err
		}
		eng = h
	}

	f := filter.New(filter.Config{
		Policy:       filter.Policy(d.cfg.Filter.Policy),
		Reserved:     d.variant.Reserved,
		Markers:      d.variant.Markers,
		IgnoreInside: d.cfg.Filter.IgnoreClasses,
		Within:       d.container,
		Logger:       d.logger,
	})

	d.notifier = notify.New(notify.Config{
		Policy:   notify.Policy(d.cfg.Resize.Policy),
		Markers:  d.variant.Markers,
		Host:     d.host,
		Prober:   d.prober,
		Fallback: d.fallback,
		Logger:   d.logger,
	})

	d.coal = coalescer.New(coalescer.Config{
		Cooldown:      d.cfg.Cooldown(),
		RenderTimeout: d.cfg.RenderTimeout.Duration(),
		Logger:        d.logger,
	}, eng, d.notifier)

	d.observers = observer.Build(d.cfg.Observers, observer.Deps{
		Sink:    d.coal,
		Filter:  f,
		Marker:  d.notifier,
		Queue:   eng,
		Records: d.records,
		Logger:  d.logger,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.coal.Run(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.observers.Run(runCtx)
	}()

	d.active.Store(true)
	d.reason.Store("")
	d.logger.Info("mathdisplay: started", "engine", d.variant.Name, "observers", d.observers.Names())

	d.coal.Rescan()
	return nil
}

// Observe feeds a batch of mutation records, as the mutationObserver
// would. Ignored when that observer is not configured or the display is
// inert.
func (d *Display) Observe(records []mutation.Record) {
	if o := d.observerSet(); o != nil && o.Mutations != nil {
		o.Mutations.Handle(records)
	}
}

// DOMChanged is the host domChanged signal. A nil target rescans the
// whole document. Ignored when the domChangedListener is not configured.
func (d *Display) DOMChanged(target dom.Node) {
	if o := d.observerSet(); o != nil && o.DOMChanged != nil {
		o.DOMChanged.Handle(observer.Event{Target: target})
	}
}

func (d *Display) observerSet() *observer.Set {
	if !d.active.Load() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.observers
}

// Active reports whether the display is running with an engine.
func (d *Display) Active() bool { return d.active.Load() }

// Stop halts the observers and the coalescer. In-flight work is
// abandoned.
func (d *Display) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	d.active.Store(false)
	d.reason.Store("stopped")
	cancel()
	d.wg.Wait()
}

// Stats is a snapshot of the display state.
type Stats struct {
	Engine    string          `json:"engine"`
	Active    bool            `json:"active"`
	Inert     string          `json:"inert,omitempty"`
	Observers []string        `json:"observers,omitempty"`
	Coalescer coalescer.Stats `json:"coalescer"`
	Resizes   uint64          `json:"resizes"`
	Fallbacks uint64          `json:"fallbacks"`
}

// Stats returns a snapshot of the display state.
func (d *Display) Stats() Stats {
	st := Stats{Engine: d.variant.Name, Active: d.active.Load()}
	st.Inert, _ = d.reason.Load().(string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.coal != nil {
		st.Coalescer = d.coal.Stats()
	}
	if d.notifier != nil {
		st.Resizes = d.notifier.Resizes()
		st.Fallbacks = d.notifier.Fallbacks()
	}
	if d.observers != nil {
		st.Observers = d.observers.Names()
	}
	return st
}
