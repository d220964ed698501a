package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestCallback(t *testing.T) {
	var got Event
	cb := NewCallback(func(_ context.Context, ev Event) error {
		got = ev
		return nil
	}, nil)
	if err := cb.Resize(context.Background(), Event{ID: "evt_1", Type: "resize"}); err != nil {
		t.Fatal(err)
	}
	if got.ID != "evt_1" {
		t.Errorf("event: %+v", got)
	}
	if err := cb.Report(context.Background(), Report{}); err != nil {
		t.Errorf("Report with nil handler: %v", err)
	}

	if err := NewCallback(nil, nil).Resize(context.Background(), Event{}); !errors.Is(err, ErrMissingHost) {
		t.Errorf("nil resize handler: got %v", err)
	}
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	s.Resize(context.Background(), Event{ID: "evt_1", Type: "resize", Session: "rs_1"})
	s.Report(context.Background(), Report{Session: "rs_1", State: "done", MathAdded: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %d", len(lines))
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &env); err != nil || env.Type != "resize" {
		t.Errorf("line 0: %s (%v)", lines[0], err)
	}
	if !strings.Contains(lines[1], `"math_added":true`) {
		t.Errorf("line 1: %s", lines[1])
	}
}

func TestWebhookRetry(t *testing.T) {
	var calls atomic.Int32
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		data, _ := io.ReadAll(r.Body)
		body.Store(string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Resize(context.Background(), Event{ID: "evt_1", Type: "resize"}); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}
	if b, _ := body.Load().(string); !strings.Contains(b, `"type":"resize"`) {
		t.Errorf("body: %q", b)
	}

	// Reports are opt-in.
	if err := wh.Report(context.Background(), Report{}); err != nil || calls.Load() != 3 {
		t.Errorf("report without opt-in: err=%v calls=%d", err, calls.Load())
	}
}

func TestWebhookExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond), WithWebhookReports())
	err := wh.Report(context.Background(), Report{Session: "rs_1"})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("got %v", err)
	}
}

func TestWebhookRejectedIsFinal(t *testing.T) {
	var calls atomic.Int32
	var key atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		key.Store(r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	err := wh.Resize(context.Background(), Event{ID: "evt_7", Type: "resize"})
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
	if k, _ := key.Load().(string); k != "evt_7" {
		t.Errorf("Idempotency-Key: %q", k)
	}
}

type stubHost struct {
	resizeErr error
	resizes   int
	closed    bool
}

func (s *stubHost) Resize(context.Context, Event) error {
	s.resizes++
	return s.resizeErr
}
func (s *stubHost) Report(context.Context, Report) error { return nil }
func (s *stubHost) Close() error                         { s.closed = true; return nil }

func TestRouter(t *testing.T) {
	missing := &stubHost{resizeErr: ErrMissingHost}
	failing := &stubHost{resizeErr: errors.New("boom")}
	ok := &stubHost{}

	r := NewRouter(nil, missing, failing, ok)
	if err := r.Resize(context.Background(), Event{}); err == nil || errors.Is(err, ErrMissingHost) {
		t.Errorf("mixed: got %v", err)
	}
	if ok.resizes != 1 || missing.resizes != 1 {
		t.Errorf("fan-out: %d %d", ok.resizes, missing.resizes)
	}

	if err := NewRouter(nil, missing).Resize(context.Background(), Event{}); !errors.Is(err, ErrMissingHost) {
		t.Errorf("all missing: got %v", err)
	}
	if err := NewRouter(nil).Resize(context.Background(), Event{}); !errors.Is(err, ErrMissingHost) {
		t.Errorf("empty: got %v", err)
	}
	if err := NewRouter(nil, missing, ok).Resize(context.Background(), Event{}); err != nil {
		t.Errorf("one receiver: got %v", err)
	}

	r.Close()
	if !missing.closed || !failing.closed || !ok.closed {
		t.Error("Close not fanned out")
	}
}
