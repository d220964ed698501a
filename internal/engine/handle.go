package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/internal/page"
)

// Handle is the loaded engine. It is obtained once from a Loader and kept
// for the lifetime of the page; engines cannot be unloaded.
type Handle struct {
	v  Variant
	rt page.Runtime
}

// Variant returns the engine description the handle was loaded from.
func (h *Handle) Variant() Variant { return h.v }

// Clear implements Engine.
func (h *Handle) Clear(ctx context.Context, scope []dom.Node) error {
	if _, err := h.rt.Eval(ctx, h.v.clear(page.Elements(scope))); err != nil {
		return &TypesetError{Engine: h.v.Name, Op: "clear", Cause: err}
	}
	return nil
}

// Typeset implements Engine.
func (h *Handle) Typeset(ctx context.Context, scope []dom.Node) error {
	if _, err := h.rt.Eval(ctx, h.v.typeset(page.Elements(scope), h.v.configLiteral())); err != nil {
		return &TypesetError{Engine: h.v.Name, Op: "typeset", Cause: err}
	}
	return nil
}

// Queue implements Engine.
func (h *Handle) Queue(ctx context.Context) (Queue, bool, error) {
	if !h.v.HasQueue() {
		return Queue{}, false, nil
	}
	raw, err := h.rt.Eval(ctx, h.v.queue)
	if err != nil {
		return Queue{}, true, fmt.Errorf("engine: read queue: %w", err)
	}
	var q Queue
	if err := json.Unmarshal(raw, &q); err != nil {
		return Queue{}, true, fmt.Errorf("engine: decode queue: %w", err)
	}
	return q, true, nil
}
