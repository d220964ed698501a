// CLAUDE:SUMMARY In-process callback host delivering resize events and reports via Go function calls.
package host

import "context"

// ResizeFunc is called for each resize event.
type ResizeFunc func(ctx context.Context, ev Event) error

// ReportFunc is called for each session report.
type ReportFunc func(ctx context.Context, r Report) error

// Callback delivers via Go function calls, for hosts living in the same
// process.
type Callback struct {
	onResize ResizeFunc
	onReport ReportFunc
}

// NewCallback creates a Callback host. Either handler may be nil; without
// a resize handler Resize reports ErrMissingHost.
func NewCallback(onResize ResizeFunc, onReport ReportFunc) *Callback {
	return &Callback{onResize: onResize, onReport: onReport}
}

func (c *Callback) Resize(ctx context.Context, ev Event) error {
	if c.onResize == nil {
		return ErrMissingHost
	}
	return c.onResize(ctx, ev)
}

func (c *Callback) Report(ctx context.Context, r Report) error {
	if c.onReport != nil {
		return c.onReport(ctx, r)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
