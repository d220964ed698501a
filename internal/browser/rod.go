package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/mathdisplay/internal/page"
)

// RodRuntime implements page.Runtime over a Rod page.
type RodRuntime struct {
	page *rod.Page
}

// NewRodRuntime wraps p.
func NewRodRuntime(p *rod.Page) *RodRuntime { return &RodRuntime{page: p} }

// Page returns the underlying Rod page.
func (r *RodRuntime) Page() *rod.Page { return r.page }

func (r *RodRuntime) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	res, err := r.page.Context(ctx).Evaluate(rod.Eval(js).ByPromise())
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

func (r *RodRuntime) AddScript(ctx context.Context, s page.Script) error {
	// Rod's helper cannot set integrity, nor both src and inline text.
	if s.Integrity != "" || s.Content != "" {
		_, err := r.Eval(ctx, page.InjectScript(s))
		return err
	}
	if err := r.page.Context(ctx).AddScriptTag(s.Src, ""); err != nil {
		return fmt.Errorf("browser: add script %s: %w", s.Src, err)
	}
	return nil
}

func (r *RodRuntime) AddStyle(ctx context.Context, href string) error {
	if err := r.page.Context(ctx).AddStyleTag(href, ""); err != nil {
		return fmt.Errorf("browser: add style %s: %w", href, err)
	}
	return nil
}

// Listen registers the observer binding and forwards its payloads to b
// until ctx is cancelled.
func (r *RodRuntime) Listen(ctx context.Context, b *Bridge) error {
	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(r.page); err != nil {
		return fmt.Errorf("browser: add binding: %w", err)
	}
	wait := r.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == BindingName {
			b.Deliver(e.Payload)
		}
	})
	go wait()
	return nil
}
