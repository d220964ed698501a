package mathdisplay

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/engine"
	"github.com/hazyhaar/mathdisplay/internal/page"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// docEngine "renders" by appending a MathJax marker to each scope node
// that has none yet, so re-typesetting rendered content adds nothing.
type docEngine struct {
	mu    *sync.Mutex
	doc   *dom.Document
	calls int
}

func (e *docEngine) Clear(context.Context, []dom.Node) error { return nil }

func (e *docEngine) Typeset(_ context.Context, scope []dom.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(scope) == 0 {
		scope = []dom.Node{e.doc.Body()}
	}
	for _, n := range scope {
		rendered, err := e.doc.ContainsMarker(context.Background(), []dom.Node{n}, []string{"MathJax"})
		if err != nil {
			return err
		}
		if rendered {
			continue
		}
		if _, err := e.doc.Insert(n, `<span class="MathJax">rendered</span>`); err != nil {
			return err
		}
	}
	return nil
}

func (e *docEngine) Queue(context.Context) (engine.Queue, bool, error) {
	return engine.Queue{}, false, nil
}

func (e *docEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type lockedProber struct {
	mu  *sync.Mutex
	doc *dom.Document
}

func (p lockedProber) CountMarkers(ctx context.Context, scope []dom.Node, classes []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.CountMarkers(ctx, scope, classes)
}

func waitIdle(t *testing.T, d *Display, sessions uint64) Stats {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := d.Stats()
		if st.Coalescer.Sessions >= sessions && st.Coalescer.State == "idle" {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("display not idle after %d sessions: %+v", sessions, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func resizeHost() (Host, chan ResizeEvent) {
	ch := make(chan ResizeEvent, 8)
	return NewCallbackHost(func(_ context.Context, ev ResizeEvent) error {
		ch <- ev
		return nil
	}, nil), ch
}

func nextResize(t *testing.T, ch chan ResizeEvent) ResizeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no resize")
		return ResizeEvent{}
	}
}

func noResize(t *testing.T, ch chan ResizeEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected resize %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(`
observers:
  - name: mutationObserver
    params:
      cooldown: 10ms
  - name: domChangedListener
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestDisplayEndToEnd(t *testing.T) {
	doc, err := dom.ParseString(`<html><body>
<div class="h5p-container"><div id="q">What is \(x^2\)?</div></div>
<div id="outside"></div>
</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	eng := &docEngine{mu: &mu, doc: doc}
	h, resizes := resizeHost()

	d, err := New(testConfig(t),
		WithDocument(doc),
		WithProber(lockedProber{mu: &mu, doc: doc}),
		WithEngine(eng),
		WithHost(h))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	// Initial whole-document pass.
	nextResize(t, resizes)
	if !d.Active() {
		t.Fatal("display should be active")
	}

	// New math inside the container.
	mu.Lock()
	q := doc.First("#q")
	added, err := doc.Insert(q, `<p>\(y\)</p>`)
	mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	d.Observe([]mutation.Record{mutation.Inserted(q, added...)})
	nextResize(t, resizes)

	// Math outside the container is not ours.
	mu.Lock()
	out := doc.First("#outside")
	added, err = doc.Insert(out, `<p>$$z$$</p>`)
	mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	d.Observe([]mutation.Record{mutation.Inserted(out, added...)})
	noResize(t, resizes)

	if eng.count() != 2 {
		t.Errorf("typesets: got %d, want 2", eng.count())
	}

	// A whole-document pass over math that is already rendered changes
	// nothing for the host.
	d.DOMChanged(nil)
	waitIdle(t, d, 3)
	noResize(t, resizes)

	st := d.Stats()
	if st.Coalescer.Sessions != 3 || st.Resizes != 2 || st.Engine != "mathjax" {
		t.Errorf("stats: %+v", st)
	}
}

func TestDisplayRescanWithoutNewMath(t *testing.T) {
	doc, err := dom.ParseString(`<html><body>
<div class="h5p-container"><p>\(x\)<span class="MathJax">x</span></p></div>
</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	eng := &docEngine{mu: &mu, doc: doc}
	h, resizes := resizeHost()

	d, err := New(testConfig(t),
		WithDocument(doc),
		WithProber(lockedProber{mu: &mu, doc: doc}),
		WithEngine(eng),
		WithHost(h))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	waitIdle(t, d, 1)
	for i := uint64(2); i <= 4; i++ {
		d.DOMChanged(nil)
		waitIdle(t, d, i)
	}
	noResize(t, resizes)

	if eng.count() != 4 {
		t.Errorf("typesets: got %d, want 4", eng.count())
	}
	if st := d.Stats(); st.Resizes != 0 {
		t.Errorf("resizes: got %d, want 0", st.Resizes)
	}
}

func TestDisplayParamsGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params = map[string]any{"question": "What is two plus two?", "answers": []any{"4", "5"}}
	eng := &docEngine{mu: &sync.Mutex{}}

	d, err := New(cfg, WithEngine(eng))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	d.DOMChanged(nil)
	time.Sleep(20 * time.Millisecond)
	if d.Active() || eng.count() != 0 {
		t.Errorf("active=%v typesets=%d", d.Active(), eng.count())
	}
	if st := d.Stats(); st.Inert != "no math in params" {
		t.Errorf("inert: %q", st.Inert)
	}
}

func TestDisplayNoRuntime(t *testing.T) {
	d, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrNoRuntime) {
		t.Errorf("got %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Error("second Start: want error")
	}
}

func TestNewUnknownEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.Engine = "jqmath"
	if _, err := New(cfg); err == nil {
		t.Error("want error")
	}
}

// fakePage answers every evaluation with true, except marker counts,
// which grow by one on each probe as if every pass rendered new math.
type fakePage struct {
	mu      sync.Mutex
	evals   []string
	added   []page.Script
	markers int
}

func (f *fakePage) Eval(_ context.Context, js string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, js)
	if strings.Contains(js, "querySelectorAll(sel)") {
		n := f.markers
		f.markers++
		return json.RawMessage(strconv.Itoa(n)), nil
	}
	return json.RawMessage("true"), nil
}

func (f *fakePage) AddScript(_ context.Context, s page.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, s)
	return nil
}

func (f *fakePage) AddStyle(context.Context, string) error { return nil }

func (f *fakePage) evaluated(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, js := range f.evals {
		if strings.Contains(js, sub) {
			return true
		}
	}
	return false
}

func TestDisplayLoadsEngine(t *testing.T) {
	cfg, err := ParseConfig([]byte(`renderer: {engine: katex}`))
	if err != nil {
		t.Fatal(err)
	}
	rt := &fakePage{}
	h, resizes := resizeHost()
	d, err := New(cfg, WithRuntime(rt), WithHost(h))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	nextResize(t, resizes)
	if !rt.evaluated("renderMathInElement") {
		t.Error("katex typeset not evaluated")
	}
	if d.Stats().Engine != "katex" {
		t.Errorf("engine: %q", d.Stats().Engine)
	}
}
