// CLAUDE:SUMMARY Sends one host resize per finished render session that produced math, with a window resize fallback.
// Package notify tells the host when typesetting changed the layout.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/idgen"
	"github.com/hazyhaar/mathdisplay/internal/coalescer"
	"github.com/hazyhaar/mathdisplay/internal/host"
)

// Policy decides how "the session produced math" is established.
type Policy string

const (
	// PolicyScope counts rendered-output markers in the session scope
	// before and after the engine runs. The session produced math only if
	// the count grew, so re-typesetting math that was already rendered
	// never resizes.
	PolicyScope Policy = "scope"
	// PolicyObserved uses marker nodes seen in mutation records since the
	// previous session ended. Records travel from the page through the
	// observer binding asynchronously, so markers inserted at the very end
	// of a pass can arrive after its SessionDone and are credited to the
	// next session instead.
	PolicyObserved Policy = "observed"
)

// Prober counts rendered-output markers below scope (nil: whole
// document). Implemented by dom.Document and page.Prober.
type Prober interface {
	CountMarkers(ctx context.Context, scope []dom.Node, classes []string) (int, error)
}

// Fallback raises a resize on the page itself when there is no host
// receiver. Implemented by page.WindowResize.
type Fallback interface {
	DispatchResize(ctx context.Context) error
}

// Config wires a Notifier.
type Config struct {
	Policy   Policy
	Markers  []string
	Host     host.Host // may be nil
	Prober   Prober    // required by PolicyScope
	Fallback Fallback  // may be nil
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Policy == "" {
		c.Policy = PolicyScope
	}
	if c.Policy == PolicyScope && c.Prober == nil {
		c.Policy = PolicyObserved
	}
	if c.Markers == nil {
		c.Markers = []string{"MathJax", "MathJax_Display"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// baseline is the marker count of a session scope before the engine ran.
type baseline struct {
	session string
	count   int
}

// Notifier implements coalescer.Notifier and coalescer.Preparer.
type Notifier struct {
	cfg       Config
	logger    *slog.Logger
	newID     idgen.Generator
	mathAdded atomic.Bool

	mu   sync.Mutex
	base baseline
	resizes   atomic.Uint64
	fallbacks atomic.Uint64
}

// New creates a Notifier.
func New(cfg Config) *Notifier {
	cfg.defaults()
	return &Notifier{
		cfg:    cfg,
		logger: cfg.Logger,
		newID:  idgen.Prefixed("evt_", idgen.Default),
	}
}

// MarkMathAdded records that rendered math appeared in the document.
// Used by PolicyObserved.
func (n *Notifier) MarkMathAdded() { n.mathAdded.Store(true) }

// SessionStarting records the marker count of the session scope before
// the engine clears and typesets it. Only PolicyScope needs it.
func (n *Notifier) SessionStarting(ctx context.Context, s coalescer.Session) {
	if n.cfg.Policy != PolicyScope {
		return
	}
	count, err := n.cfg.Prober.CountMarkers(ctx, s.Scope, n.cfg.Markers)
	n.mu.Lock()
	defer n.mu.Unlock()
	if err != nil {
		n.base = baseline{}
		n.logger.Debug("notify: baseline probe failed", "session", s.ID, "error", err)
		return
	}
	n.base = baseline{session: s.ID, count: count}
}

// Resizes returns how many resize notifications were raised, through the
// host or the fallback.
func (n *Notifier) Resizes() uint64 { return n.resizes.Load() }

// Fallbacks returns how many of them went through the fallback.
func (n *Notifier) Fallbacks() uint64 { return n.fallbacks.Load() }

// SessionDone reports s to the host and raises one resize if s produced
// math. It never fails: delivery errors are logged and dropped.
func (n *Notifier) SessionDone(ctx context.Context, s coalescer.Session) {
	math := n.producedMath(ctx, s)

	if n.cfg.Host != nil {
		rep := host.Report{
			Session:   s.ID,
			State:     string(s.State),
			Full:      s.Full,
			Targets:   len(s.Scope),
			MathAdded: math,
			Missed:    s.Missed,
			Elapsed:   s.Finished.Sub(s.Started),
		}
		if s.Err != nil {
			rep.Error = s.Err.Error()
		}
		if err := n.cfg.Host.Report(ctx, rep); err != nil {
			n.logger.Debug("notify: report failed", "session", s.ID, "error", err)
		}
	}

	if !math {
		return
	}
	n.resize(ctx, s.ID)
}

func (n *Notifier) producedMath(ctx context.Context, s coalescer.Session) bool {
	observed := n.mathAdded.Swap(false)
	if n.cfg.Policy == PolicyObserved {
		return observed
	}

	n.mu.Lock()
	base := n.base
	n.base = baseline{}
	n.mu.Unlock()
	if base.session == "" || base.session != s.ID {
		n.logger.Debug("notify: no baseline, using observed markers", "session", s.ID)
		return observed
	}

	after, err := n.cfg.Prober.CountMarkers(ctx, s.Scope, n.cfg.Markers)
	if err != nil {
		n.logger.Debug("notify: marker probe failed", "session", s.ID, "error", err)
		return observed
	}
	return after > base.count
}

func (n *Notifier) resize(ctx context.Context, session string) {
	ev := host.Event{ID: n.newID(), Type: "resize", Session: session, Time: time.Now()}

	err := host.ErrMissingHost
	if n.cfg.Host != nil {
		err = n.cfg.Host.Resize(ctx, ev)
	}
	switch {
	case err == nil:
		n.resizes.Add(1)
		n.logger.Debug("notify: host resized", "session", session, "event", ev.ID)
		return
	case !errors.Is(err, host.ErrMissingHost):
		n.logger.Debug("notify: host resize failed", "session", session, "error", err)
		return
	}

	if n.cfg.Fallback == nil {
		n.logger.Debug("notify: no host and no fallback", "session", session)
		return
	}
	if err := n.cfg.Fallback.DispatchResize(ctx); err != nil {
		n.logger.Debug("notify: window resize failed", "session", session, "error", err)
		return
	}
	n.resizes.Add(1)
	n.fallbacks.Add(1)
}
