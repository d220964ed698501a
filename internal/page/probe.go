package page

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/mathdisplay/dom"
)

// Prober checks rendered output for marker classes inside the page.
type Prober struct {
	rt Runtime
}

// NewProber creates a Prober over rt.
func NewProber(rt Runtime) *Prober { return &Prober{rt: rt} }

// ContainsMarker reports whether any element below scope carries one of
// classes. A nil scope means the whole document.
func (p *Prober) ContainsMarker(ctx context.Context, scope []dom.Node, classes []string) (bool, error) {
	n, err := p.CountMarkers(ctx, scope, classes)
	return n > 0, err
}

// CountMarkers counts the elements below scope that carry one of classes.
func (p *Prober) CountMarkers(ctx context.Context, scope []dom.Node, classes []string) (int, error) {
	if len(classes) == 0 {
		return 0, nil
	}
	js := fmt.Sprintf(`() => {
	const sel = %s;
	const scope = (%s || [document]).filter((el) => el && el.isConnected !== false);
	return scope.reduce((n, el) => n + el.querySelectorAll(sel).length, 0);
}`, Literal(dom.ClassSelector(classes)), Elements(scope))
	raw, err := p.rt.Eval(ctx, js)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("page: count markers: %w", err)
	}
	return n, nil
}

// WindowResize dispatches a generic resize event on the page's top-level
// window. It is the best-effort fallback when no host is attached.
type WindowResize struct {
	rt Runtime
}

// NewWindowResize creates the fallback over rt.
func NewWindowResize(rt Runtime) *WindowResize { return &WindowResize{rt: rt} }

// DispatchResize fires the event.
func (w *WindowResize) DispatchResize(ctx context.Context) error {
	_, err := w.rt.Eval(ctx, `() => {
	try {
		(window.top || window).dispatchEvent(new Event('resize'));
	} catch (e) {
		window.dispatchEvent(new Event('resize'));
	}
	return true;
}`)
	return err
}
