// CLAUDE:SUMMARY Injects the engine's assets into the page and polls until its entry point is available, single-flight.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/mathdisplay/internal/page"
)

// Loader injects an engine into the page and waits for it. Only one load
// runs; every caller gets the same outcome, success or failure, and a
// failed load is never retried. A load abandoned because its caller's
// context ended is not an outcome: the next Load picks it up again.
type Loader struct {
	rt       page.Runtime
	v        Variant
	interval time.Duration
	attempts int
	logger   *slog.Logger

	mu       sync.Mutex
	done     chan struct{} // closed when the load in flight ends
	settled  bool
	handle   *Handle
	err      error
	injected bool // assets are in the page; only the flight owner touches it
}

// Option configures a Loader.
type Option func(*Loader)

// WithPollInterval sets the wait between availability checks. Default: 100ms.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loader) { l.interval = d }
}

// WithPollAttempts caps the number of availability checks. Default: 50.
func WithPollAttempts(n int) Option {
	return func(l *Loader) { l.attempts = n }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader for variant v in the page behind rt.
func NewLoader(rt page.Runtime, v Variant, opts ...Option) *Loader {
	l := &Loader{
		rt:       rt,
		v:        v,
		interval: 100 * time.Millisecond,
		attempts: 50,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.interval <= 0 {
		l.interval = 100 * time.Millisecond
	}
	if l.attempts <= 0 {
		l.attempts = 50
	}
	return l
}

// Load returns the engine handle, loading the engine on first call.
// Concurrent callers wait for the load in flight.
func (l *Loader) Load(ctx context.Context) (*Handle, error) {
	for {
		l.mu.Lock()
		if l.settled {
			h, err := l.handle, l.err
			l.mu.Unlock()
			return h, err
		}
		if l.done != nil {
			done := l.done
			l.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		l.done = done
		l.mu.Unlock()

		h, err := l.load(ctx)

		l.mu.Lock()
		if err != nil && ctx.Err() != nil {
			l.done = nil
			l.mu.Unlock()
			close(done)
			l.logger.Debug("engine: load abandoned", "engine", l.v.Name, "error", err)
			return nil, err
		}
		l.handle, l.err, l.settled = h, err, true
		l.mu.Unlock()
		close(done)
		return h, err
	}
}

func (l *Loader) load(ctx context.Context) (*Handle, error) {
	start := time.Now()
	if !l.injected {
		if err := l.inject(ctx); err != nil {
			return nil, err
		}
		l.injected = true
	}

	if err := l.waitReady(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("engine: loaded", "engine", l.v.Name, "src", l.v.Src, "elapsed", time.Since(start))
	return &Handle{v: l.v, rt: l.rt}, nil
}

// inject adds the engine's stylesheets, inline configuration and scripts
// to the page.
func (l *Loader) inject(ctx context.Context) error {
	cfg := l.v.configLiteral()

	for _, href := range l.v.Styles {
		if err := l.rt.AddStyle(ctx, href); err != nil {
			return &LoadError{Engine: l.v.Name, Src: href, Cause: err}
		}
	}

	if l.v.prelude != nil {
		if err := l.rt.AddScript(ctx, page.Script{Content: l.v.prelude(cfg)}); err != nil {
			return &LoadError{Engine: l.v.Name, Src: "inline configuration", Cause: err}
		}
	}

	main := page.Script{Src: l.v.Src, Integrity: l.v.Integrity}
	if l.v.content != nil {
		main.Content = l.v.content(cfg)
	}
	if err := l.rt.AddScript(ctx, main); err != nil {
		return &LoadError{Engine: l.v.Name, Src: l.v.Src, Cause: err}
	}

	for _, src := range l.v.Scripts {
		if err := l.rt.AddScript(ctx, page.Script{Src: src}); err != nil {
			return &LoadError{Engine: l.v.Name, Src: src, Cause: err}
		}
	}
	return nil
}

// waitReady polls the engine's entry point until it is available or the
// budget is exhausted.
func (l *Loader) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		ok, err := page.EvalBool(ctx, l.rt, l.v.ready)
		if err != nil {
			l.logger.Debug("engine: readiness check failed", "engine", l.v.Name, "attempt", attempt, "error", err)
		}
		if ok {
			return nil
		}
		if attempt >= l.attempts {
			return &LoadError{Engine: l.v.Name, Src: l.v.Src, Cause: ErrLoadTimeout}
		}
		select {
		case <-ctx.Done():
			return &LoadError{Engine: l.v.Name, Src: l.v.Src, Cause: ctx.Err()}
		case <-ticker.C:
		}
	}
}
