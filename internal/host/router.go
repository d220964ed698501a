package host

import (
	"context"
	"errors"
	"log/slog"
)

// Router fans out to all configured hosts. One host error does not block
// the others; errors are logged and the first encountered is returned.
// Resize reports ErrMissingHost only when no host has a receiver.
type Router struct {
	hosts  []Host
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all hosts.
func NewRouter(logger *slog.Logger, hosts ...Host) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{hosts: hosts, logger: logger}
}

// Len returns the number of hosts.
func (r *Router) Len() int { return len(r.hosts) }

func (r *Router) Resize(ctx context.Context, ev Event) error {
	var firstErr error
	delivered := false
	for _, h := range r.hosts {
		err := h.Resize(ctx, ev)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrMissingHost):
		default:
			delivered = true
			r.logger.Warn("host: resize failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if !delivered {
		return ErrMissingHost
	}
	return firstErr
}

func (r *Router) Report(ctx context.Context, rep Report) error {
	var firstErr error
	for _, h := range r.hosts {
		if err := h.Report(ctx, rep); err != nil {
			r.logger.Warn("host: report failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, h := range r.hosts {
		if err := h.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
