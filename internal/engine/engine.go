// Package engine loads the external typesetting engine into the page and
// exposes it as one capability, whichever engine was configured.
package engine

import (
	"context"

	"github.com/hazyhaar/mathdisplay/dom"
)

// Queue is the depth of the engine's own work queue, for engines that
// expose one.
type Queue struct {
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// Idle reports whether nothing is queued or running.
func (q Queue) Idle() bool { return q.Running+q.Pending == 0 }

// Engine is the typesetting capability. A nil or empty scope means the
// whole document.
type Engine interface {
	// Clear drops previous typeset results for scope.
	Clear(ctx context.Context, scope []dom.Node) error
	// Typeset renders math in scope and returns once rendering is done.
	Typeset(ctx context.Context, scope []dom.Node) error
	// Queue reads the engine's queue depth. ok is false for engines
	// without an observable queue.
	Queue(ctx context.Context) (q Queue, ok bool, err error)
}
