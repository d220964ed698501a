// Package host defines the delivery backends for notifications to the
// host application embedding the math display.
package host

import (
	"context"
	"errors"
	"time"
)

// ErrMissingHost is returned by a Host that has no resize receiver. The
// caller falls back to a window resize event.
var ErrMissingHost = errors.New("host: no resize receiver")

// Event asks the host to re-measure its content.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"` // resize
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
}

// Report summarises a finished render session.
type Report struct {
	Session   string        `json:"session"`
	State     string        `json:"state"`
	Full      bool          `json:"full"`
	Targets   int           `json:"targets"`
	MathAdded bool          `json:"math_added"`
	Missed    bool          `json:"missed"`
	Elapsed   time.Duration `json:"elapsed"`
	Error     string        `json:"error,omitempty"`
}

// Host is the output interface. Implementations deliver to different
// backends (in-process callback, stdout, webhook).
type Host interface {
	Resize(ctx context.Context, ev Event) error
	Report(ctx context.Context, r Report) error
	Close() error
}
