// CLAUDE:SUMMARY Debounces filtered DOM updates into single-flight typeset sessions with one full-document follow-up on miss.
// Package coalescer turns a stream of DOM updates into the smallest number
// of typeset passes. At most one pass runs at a time; updates that arrive
// during a pass are not queued but cause one full-document pass after it.
package coalescer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/idgen"
	"github.com/hazyhaar/mathdisplay/internal/engine"
	"github.com/hazyhaar/mathdisplay/internal/filter"
)

// State is the coalescer state.
type State int32

const (
	Idle State = iota
	Accumulating
	Rendering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Rendering:
		return "rendering"
	}
	return "unknown"
}

// Notifier is told about every finished session.
type Notifier interface {
	SessionDone(ctx context.Context, s Session)
}

// Preparer is optionally implemented by a Notifier that needs to look at
// the page before a session touches it. SessionStarting is called from the
// render goroutine, before Clear, and returns before the engine runs.
type Preparer interface {
	SessionStarting(ctx context.Context, s Session)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, s Session)

// SessionDone implements Notifier.
func (f NotifierFunc) SessionDone(ctx context.Context, s Session) { f(ctx, s) }

// Config controls timing.
type Config struct {
	// Cooldown is the wait between the first update and the typeset pass.
	// Zero fires on the next loop turn.
	Cooldown time.Duration
	// RenderTimeout bounds one session. Default: 30s.
	RenderTimeout time.Duration
	// QueueChecks and QueueInterval bound the wait for an engine queue to
	// drain after typeset. Default: 10 x 50ms.
	QueueChecks   int
	QueueInterval time.Duration
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.QueueChecks <= 0 {
		c.QueueChecks = 10
	}
	if c.QueueInterval <= 0 {
		c.QueueInterval = 50 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats are cumulative counters.
type Stats struct {
	Updates  uint64 `json:"updates"`
	Sessions uint64 `json:"sessions"`
	Full     uint64 `json:"full_sessions"`
	Failed   uint64 `json:"failed_sessions"`
	Missed   uint64 `json:"missed"`
	State    string `json:"state"`
}

// Coalescer owns the pending target set, the cooldown timer and the
// in-flight session. All of them live in the Run goroutine.
type Coalescer struct {
	cfg    Config
	eng    engine.Engine
	notify Notifier
	logger *slog.Logger
	newID  idgen.Generator

	mu     sync.Mutex
	inbox  []dom.Node
	rescan bool
	kick   chan struct{}

	results chan Session
	state   atomic.Int32

	updates  atomic.Uint64
	sessions atomic.Uint64
	full     atomic.Uint64
	failed   atomic.Uint64
	missed   atomic.Uint64
}

// New creates a Coalescer. A nil engine leaves it inert: updates are
// dropped and Run only waits for cancellation. notify may be nil.
func New(cfg Config, eng engine.Engine, notify Notifier) *Coalescer {
	cfg.defaults()
	return &Coalescer{
		cfg:     cfg,
		eng:     eng,
		notify:  notify,
		logger:  cfg.Logger,
		newID:   idgen.Prefixed("rs_", idgen.Default),
		kick:    make(chan struct{}, 1),
		results: make(chan Session, 1),
	}
}

// Update queues targets for the next pass. Targets must already be
// filtered.
func (c *Coalescer) Update(targets ...dom.Node) {
	if c.eng == nil || len(targets) == 0 {
		return
	}
	c.mu.Lock()
	c.inbox = append(c.inbox, targets...)
	c.mu.Unlock()
	c.updates.Add(1)
	c.wake()
}

// Rescan queues a whole-document pass.
func (c *Coalescer) Rescan() {
	if c.eng == nil {
		return
	}
	c.mu.Lock()
	c.rescan = true
	c.mu.Unlock()
	c.updates.Add(1)
	c.wake()
}

func (c *Coalescer) wake() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coalescer) take() ([]dom.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	targets, rescan := c.inbox, c.rescan
	c.inbox, c.rescan = nil, false
	return targets, rescan
}

// State returns the current state.
func (c *Coalescer) State() State { return State(c.state.Load()) }

// Stats returns a snapshot of the counters.
func (c *Coalescer) Stats() Stats {
	return Stats{
		Updates:  c.updates.Load(),
		Sessions: c.sessions.Load(),
		Full:     c.full.Load(),
		Failed:   c.failed.Load(),
		Missed:   c.missed.Load(),
		State:    c.State().String(),
	}
}

// Run is the coalescer loop. It returns ctx.Err() when ctx is cancelled;
// pending work and an in-flight session are abandoned.
func (c *Coalescer) Run(ctx context.Context) error {
	if c.eng == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	var (
		pending = filter.NewSet()
		full    bool
		missed  bool
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		c.state.Store(int32(Idle))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.kick:
			targets, rescan := c.take()
			if len(targets) == 0 && !rescan {
				continue
			}
			switch c.State() {
			case Rendering:
				if !missed {
					c.logger.Debug("coalescer: update during render, follow-up scheduled")
				}
				missed = true
				c.missed.Add(1)
				continue
			case Idle:
				timer = time.NewTimer(c.cfg.Cooldown)
				timerC = timer.C
				c.state.Store(int32(Accumulating))
			}
			for _, n := range targets {
				pending.Add(n)
			}
			full = full || rescan

		case <-timerC:
			timer, timerC = nil, nil
			var scope []dom.Node
			if !full {
				scope = pending.Drain()
			} else {
				pending.Drain()
			}
			c.start(ctx, scope)
			full = false

		case s := <-c.results:
			// A failed session counts as completed and not missed: the
			// updates it swallowed wait for the next mutation or rescan.
			if s.Err != nil && missed {
				c.logger.Debug("coalescer: session failed, follow-up dropped", "session", s.ID)
			}
			s.Missed = missed && s.Err == nil
			missed = false
			c.finish(ctx, s)
			if s.Missed {
				c.start(ctx, nil)
				continue
			}
			c.state.Store(int32(Idle))
		}
	}
}

// start begins a session on scope (nil for the whole document).
func (c *Coalescer) start(ctx context.Context, scope []dom.Node) {
	s := Session{
		ID:      c.newID(),
		Scope:   scope,
		Full:    len(scope) == 0,
		Started: time.Now(),
		State:   SessionPending,
	}
	c.state.Store(int32(Rendering))
	c.sessions.Add(1)
	if s.Full {
		c.full.Add(1)
	}
	c.logger.Debug("coalescer: session started", "session", s.ID, "targets", len(scope), "full", s.Full)
	go c.render(ctx, s)
}

func (c *Coalescer) render(ctx context.Context, s Session) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.RenderTimeout)
	defer cancel()

	if p, ok := c.notify.(Preparer); ok {
		p.SessionStarting(rctx, s)
	}
	err := c.eng.Clear(rctx, s.Scope)
	if err == nil {
		err = c.eng.Typeset(rctx, s.Scope)
	}
	if err == nil {
		c.waitQueue(rctx)
	}

	s.Finished = time.Now()
	if err != nil {
		s.State, s.Err = SessionFailed, err
	} else {
		s.State = SessionDone
	}

	select {
	case c.results <- s:
	case <-ctx.Done():
	}
}

// waitQueue waits for the engine queue to drain, for engines that expose
// one. Best effort: the typeset promise is authoritative.
func (c *Coalescer) waitQueue(ctx context.Context) {
	for i := 0; i < c.cfg.QueueChecks; i++ {
		q, ok, err := c.eng.Queue(ctx)
		if !ok || err != nil || q.Idle() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.QueueInterval):
		}
	}
	c.logger.Debug("coalescer: engine queue still busy")
}

func (c *Coalescer) finish(ctx context.Context, s Session) {
	if s.Err != nil {
		c.failed.Add(1)
		var te *engine.TypesetError
		switch {
		case errors.As(s.Err, &te):
			c.logger.Warn("coalescer: typeset failed", "session", s.ID, "op", te.Op, "error", te.Cause)
		case errors.Is(s.Err, context.DeadlineExceeded):
			c.logger.Warn("coalescer: session timed out", "session", s.ID, "timeout", c.cfg.RenderTimeout)
		default:
			c.logger.Warn("coalescer: session failed", "session", s.ID, "error", s.Err)
		}
	} else {
		c.logger.Debug("coalescer: session done", "session", s.ID,
			"elapsed", s.Finished.Sub(s.Started), "missed", s.Missed)
	}
	if c.notify != nil {
		c.notify.SessionDone(ctx, s)
	}
}
