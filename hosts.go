package mathdisplay

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/mathdisplay/internal/host"
)

// Host is the output interface for resize events and session reports.
type Host = host.Host

// ResizeEvent asks the host to re-measure its content.
type ResizeEvent = host.Event

// SessionReport summarises a finished render session.
type SessionReport = host.Report

// ErrMissingHost is returned by a Host that has no resize receiver.
var ErrMissingHost = host.ErrMissingHost

// NewCallbackHost creates an in-process host. Either handler may be nil.
func NewCallbackHost(
	onResize func(ctx context.Context, ev ResizeEvent) error,
	onReport func(ctx context.Context, r SessionReport) error,
) Host {
	return host.NewCallback(onResize, onReport)
}

// NewStdoutHost creates a stdout JSON-lines host.
func NewStdoutHost(w io.Writer) Host {
	return host.NewStdout(w)
}

// NewWebhookHost creates a webhook POST host with retry.
func NewWebhookHost(url string, logger *slog.Logger) Host {
	if logger == nil {
		logger = slog.Default()
	}
	return host.NewWebhook(url, host.WithWebhookLogger(logger), host.WithWebhookReports())
}

// NewHosts builds the hosts named in cfgs, fanned out through one router.
func NewHosts(cfgs []HostConfig, logger *slog.Logger) (Host, error) {
	var hosts []host.Host
	for _, c := range cfgs {
		switch c.Type {
		case "stdout":
			hosts = append(hosts, host.NewStdout(nil))
		case "webhook":
			if c.URL == "" {
				return nil, fmt.Errorf("mathdisplay: webhook host without url")
			}
			hosts = append(hosts, NewWebhookHost(c.URL, logger))
		default:
			return nil, fmt.Errorf("mathdisplay: unknown host type %q", c.Type)
		}
	}
	return host.NewRouter(logger, hosts...), nil
}
