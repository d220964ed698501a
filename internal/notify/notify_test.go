package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/coalescer"
	"github.com/hazyhaar/mathdisplay/internal/host"
)

type fakeFallback struct {
	calls int
	err   error
}

func (f *fakeFallback) DispatchResize(context.Context) error {
	f.calls++
	return f.err
}

type recordingHost struct {
	resizes []host.Event
	reports []host.Report
	err     error
}

func (h *recordingHost) Resize(_ context.Context, ev host.Event) error {
	h.resizes = append(h.resizes, ev)
	return h.err
}

func (h *recordingHost) Report(_ context.Context, r host.Report) error {
	h.reports = append(h.reports, r)
	return nil
}

func (h *recordingHost) Close() error { return nil }

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(s)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestScopePolicyResizesOnce(t *testing.T) {
	doc := parse(t, `<html><body>
<div id="a">\(x\)</div>
<div id="b">plain</div>
</body></html>`)
	h := &recordingHost{}
	n := New(Config{Host: h, Prober: doc})
	ctx := context.Background()

	s1 := coalescer.Session{ID: "rs_1", Scope: []dom.Node{doc.First("#a")}, State: coalescer.SessionDone}
	n.SessionStarting(ctx, s1)
	if _, err := doc.Insert(doc.First("#a"), `<span class="MathJax">x</span>`); err != nil {
		t.Fatal(err)
	}
	n.SessionDone(ctx, s1)
	if len(h.resizes) != 1 || h.resizes[0].Session != "rs_1" {
		t.Fatalf("resizes: %+v", h.resizes)
	}

	s2 := coalescer.Session{ID: "rs_2", Scope: []dom.Node{doc.First("#b")}, State: coalescer.SessionDone}
	n.SessionStarting(ctx, s2)
	n.SessionDone(ctx, s2)
	if len(h.resizes) != 1 {
		t.Errorf("session without math resized: %+v", h.resizes)
	}
	if len(h.reports) != 2 || !h.reports[0].MathAdded || h.reports[1].MathAdded {
		t.Errorf("reports: %+v", h.reports)
	}
	if n.Resizes() != 1 {
		t.Errorf("Resizes: got %d", n.Resizes())
	}
}

func TestScopePolicyIgnoresRenderedMath(t *testing.T) {
	doc := parse(t, `<html><body>
<div id="a"><span class="MathJax">x</span></div>
</body></html>`)
	h := &recordingHost{}
	n := New(Config{Host: h, Prober: doc})
	ctx := context.Background()

	// Whole-document passes over math that is already rendered.
	for _, id := range []string{"rs_1", "rs_2", "rs_3"} {
		s := coalescer.Session{ID: id, Full: true, State: coalescer.SessionDone}
		n.SessionStarting(ctx, s)
		n.SessionDone(ctx, s)
	}
	if len(h.resizes) != 0 {
		t.Fatalf("resizes: %+v", h.resizes)
	}

	s := coalescer.Session{ID: "rs_4", Full: true, State: coalescer.SessionDone}
	n.SessionStarting(ctx, s)
	if _, err := doc.Insert(doc.Body(), `<span class="MathJax">y</span>`); err != nil {
		t.Fatal(err)
	}
	n.SessionDone(ctx, s)
	if len(h.resizes) != 1 || h.resizes[0].Session != "rs_4" {
		t.Errorf("resizes: %+v", h.resizes)
	}
}

func TestScopePolicyWithoutBaseline(t *testing.T) {
	doc := parse(t, `<html><body><span class="MathJax">x</span></body></html>`)
	h := &recordingHost{}
	n := New(Config{Host: h, Prober: doc})

	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_1", Full: true})
	if len(h.resizes) != 0 {
		t.Fatalf("resizes: %+v", h.resizes)
	}

	// A baseline for another session does not count either.
	n.SessionStarting(context.Background(), coalescer.Session{ID: "rs_2", Full: true})
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_3", Full: true})
	if len(h.resizes) != 1 || h.resizes[0].Session != "rs_3" {
		t.Errorf("resizes: %+v", h.resizes)
	}
}

func TestObservedPolicy(t *testing.T) {
	h := &recordingHost{}
	n := New(Config{Policy: PolicyObserved, Host: h})

	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_1"})
	if len(h.resizes) != 0 {
		t.Fatalf("resizes: %+v", h.resizes)
	}
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_2"})
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_3"})
	if len(h.resizes) != 1 || h.resizes[0].Session != "rs_2" {
		t.Errorf("resizes: %+v", h.resizes)
	}
}

func TestObservedPolicyLateMarkGoesToNextSession(t *testing.T) {
	h := &recordingHost{}
	n := New(Config{Policy: PolicyObserved, Host: h})
	ctx := context.Background()

	// Marker records for rs_1 arrive only after it was reported.
	n.SessionDone(ctx, coalescer.Session{ID: "rs_1"})
	n.MarkMathAdded()
	n.SessionDone(ctx, coalescer.Session{ID: "rs_2"})

	if len(h.resizes) != 1 || h.resizes[0].Session != "rs_2" {
		t.Errorf("resizes: %+v", h.resizes)
	}
	if len(h.reports) != 2 || h.reports[0].MathAdded || !h.reports[1].MathAdded {
		t.Errorf("reports: %+v", h.reports)
	}

	// SessionStarting is a no-op for this policy.
	n.SessionStarting(ctx, coalescer.Session{ID: "rs_3"})
	n.SessionDone(ctx, coalescer.Session{ID: "rs_3"})
	if len(h.resizes) != 1 {
		t.Errorf("resizes: %+v", h.resizes)
	}
}

func TestFallbackWithoutHost(t *testing.T) {
	fb := &fakeFallback{}
	n := New(Config{Policy: PolicyObserved, Fallback: fb})
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_1"})
	if fb.calls != 1 || n.Fallbacks() != 1 {
		t.Errorf("fallback calls: %d", fb.calls)
	}

	// A host without a resize receiver also falls back.
	fb2 := &fakeFallback{}
	n = New(Config{Policy: PolicyObserved, Host: host.NewCallback(nil, nil), Fallback: fb2})
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_2"})
	if fb2.calls != 1 {
		t.Errorf("fallback calls: %d", fb2.calls)
	}
}

func TestHostFailureIgnored(t *testing.T) {
	h := &recordingHost{err: errors.New("host gone")}
	fb := &fakeFallback{}
	n := New(Config{Policy: PolicyObserved, Host: h, Fallback: fb})
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_1"})
	if len(h.resizes) != 1 || fb.calls != 0 || n.Resizes() != 0 {
		t.Errorf("resizes=%d fallback=%d count=%d", len(h.resizes), fb.calls, n.Resizes())
	}

	// Nothing at all: no panic, nothing raised.
	n = New(Config{Policy: PolicyObserved})
	n.MarkMathAdded()
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_2"})
	if n.Resizes() != 0 {
		t.Errorf("Resizes: got %d", n.Resizes())
	}
}

func TestFailedSessionReported(t *testing.T) {
	doc := parse(t, `<html><body><p>\(x\)</p></body></html>`)
	h := &recordingHost{}
	n := New(Config{Host: h, Prober: doc})
	n.SessionDone(context.Background(), coalescer.Session{ID: "rs_1", Full: true, State: coalescer.SessionFailed, Err: errors.New("boom")})
	if len(h.reports) != 1 || h.reports[0].Error != "boom" || h.reports[0].State != "failed" {
		t.Errorf("reports: %+v", h.reports)
	}
	if len(h.resizes) != 0 {
		t.Errorf("resizes: %+v", h.resizes)
	}
}
