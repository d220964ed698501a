// CLAUDE:SUMMARY Builds the configured update sources (mutation observer, domChanged listener, interval) feeding the coalescer.
// Package observer holds the update sources that feed the coalescer. Which
// ones run is configuration: mutationObserver, domChangedListener and
// interval.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/config"
	"github.com/hazyhaar/mathdisplay/internal/engine"
	"github.com/hazyhaar/mathdisplay/internal/filter"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// ErrInvalidParams is returned for an observer whose parameters cannot
// work, such as an interval without a period.
var ErrInvalidParams = errors.New("observer: invalid params")

// Sink receives updates. Implemented by the coalescer.
type Sink interface {
	Update(targets ...dom.Node)
	Rescan()
}

// MathMarker is told when rendered math shows up in mutation records.
// Implemented by the resize notifier.
type MathMarker interface {
	MarkMathAdded()
}

// QueueReader reads the engine queue depth.
type QueueReader interface {
	Queue(ctx context.Context) (engine.Queue, bool, error)
}

// Deps are the collaborators of the observers.
type Deps struct {
	Sink   Sink
	Filter *filter.Filter
	Marker MathMarker  // may be nil
	Queue  QueueReader // may be nil
	// Records and Events are the live feeds. Either may be nil, in which
	// case the observer is driven by direct Handle calls only.
	Records <-chan []mutation.Record
	Events  <-chan Event
	Logger  *slog.Logger
}

// Set is the list of active observers.
type Set struct {
	Mutations  *Mutations
	DOMChanged *DOMChanged
	Intervals  []*Interval

	deps Deps
}

// Validate checks the parameters of one observer entry.
func Validate(c config.ObserverConfig) error {
	switch c.Name {
	case config.ObserverMutation:
		if c.Params.Cooldown != nil && *c.Params.Cooldown < 0 {
			return fmt.Errorf("%w: %s: negative cooldown", ErrInvalidParams, c.Name)
		}
	case config.ObserverDOMChanged:
	case config.ObserverInterval:
		if c.Params.Time <= 0 {
			return fmt.Errorf("%w: %s: time must be positive", ErrInvalidParams, c.Name)
		}
	default:
		return fmt.Errorf("observer: unknown observer %q", c.Name)
	}
	return nil
}

// Build creates the observers named in cfgs. Unknown names and entries
// with invalid params are logged and skipped.
func Build(cfgs []config.ObserverConfig, deps Deps) *Set {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Set{deps: deps}
	for _, c := range cfgs {
		if err := Validate(c); err != nil {
			deps.Logger.Warn("observer: skipped", "name", c.Name, "error", err)
			continue
		}
		switch c.Name {
		case config.ObserverMutation:
			if s.Mutations == nil {
				s.Mutations = NewMutations(deps.Filter, deps.Sink, deps.Marker, deps.Logger)
			}
		case config.ObserverDOMChanged:
			if s.DOMChanged == nil {
				s.DOMChanged = NewDOMChanged(deps.Sink, deps.Logger)
			}
		case config.ObserverInterval:
			s.Intervals = append(s.Intervals, NewInterval(c.Params.Time.Duration(), deps.Sink, deps.Queue, deps.Logger))
		}
	}
	return s
}

// Names lists the active observers.
func (s *Set) Names() []string {
	var names []string
	if s.Mutations != nil {
		names = append(names, config.ObserverMutation)
	}
	if s.DOMChanged != nil {
		names = append(names, config.ObserverDOMChanged)
	}
	for range s.Intervals {
		names = append(names, config.ObserverInterval)
	}
	return names
}

// Run runs every observer with a live feed until ctx is cancelled.
func (s *Set) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if s.Mutations != nil && s.deps.Records != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mutations.Run(ctx, s.deps.Records)
		}()
	}
	if s.DOMChanged != nil && s.deps.Events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.DOMChanged.Run(ctx, s.deps.Events)
		}()
	}
	for _, iv := range s.Intervals {
		wg.Add(1)
		go func(iv *Interval) {
			defer wg.Done()
			iv.Run(ctx)
		}(iv)
	}
	wg.Wait()
}
