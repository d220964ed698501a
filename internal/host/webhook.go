package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Webhook delivers notifications as JSON POSTs. 5xx answers and transport
// errors are retried with doubling delays; 4xx answers are final.
//
// Every attempt of one delivery carries the same Idempotency-Key (the
// event ID, or the session ID for reports), so a host may drop repeats.
type Webhook struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	reports bool
	logger  *slog.Logger
}

// WebhookOption configures a Webhook host.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets how many times a failed delivery is retried. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.retries = n }
}

// WithWebhookBackoff sets the delay before the first retry. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookReports also posts session reports. Default: resize only.
func WithWebhookReports() WebhookOption {
	return func(w *Webhook) { w.reports = true }
}

// WithWebhookClient replaces the HTTP client (10s timeout by default).
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook returns a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 3,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Webhook) Resize(ctx context.Context, ev Event) error {
	return w.deliver(ctx, ev.ID, envelope{Type: kindResize, Data: ev})
}

func (w *Webhook) Report(ctx context.Context, r Report) error {
	if !w.reports {
		return nil
	}
	return w.deliver(ctx, r.Session, envelope{Type: kindReport, Data: r})
}

func (w *Webhook) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// statusError is an unexpected HTTP answer.
type statusError struct{ code int }

func (e statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (e statusError) retryable() bool { return e.code >= 500 || e.code == http.StatusTooManyRequests }

func (w *Webhook) deliver(ctx context.Context, key string, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("webhook: marshal %s: %w", env.Type, err)
	}

	delay := w.backoff
	for attempt := 1; ; attempt++ {
		err = w.post(ctx, key, body)
		if err == nil {
			return nil
		}
		if se, ok := err.(statusError); ok && !se.retryable() {
			return fmt.Errorf("webhook: %s rejected: %w", env.Type, err)
		}
		if attempt > w.retries {
			return fmt.Errorf("webhook: %s failed after %d attempts: %w", env.Type, attempt, err)
		}
		w.logger.Warn("webhook: delivery failed, retrying",
			"type", env.Type, "key", key, "attempt", attempt, "delay", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
		delay *= 2
	}
}

func (w *Webhook) post(ctx context.Context, key string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	// Drain so the connection is reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError{resp.StatusCode}
	}
	return nil
}
