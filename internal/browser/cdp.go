// CLAUDE:SUMMARY chromedp implementation of page.Runtime, the alternative to the Rod driver.
package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/hazyhaar/mathdisplay/internal/page"
)

// CDPRuntime implements page.Runtime over a chromedp browser context.
type CDPRuntime struct {
	ctx    context.Context // chromedp context
	cancel context.CancelFunc
}

// OpenCDP starts (or connects to) Chrome through chromedp and navigates
// to pageURL. Close releases the browser.
func OpenCDP(ctx context.Context, cfg Config, pageURL string) (*CDPRuntime, error) {
	cfg.defaults()
	log := cfg.Logger

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.Flag("headless", !cfg.Headful),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	cctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(s string, args ...any) {
			log.Warn(fmt.Sprintf(s, args...), "driver", "chromedp")
		}),
	)
	rt := &CDPRuntime{ctx: cctx, cancel: func() { cancel(); cancelAlloc() }}

	// The first Run allocates the browser and binds it to its context, so it
	// must not carry the navigation deadline.
	if err := chromedp.Run(cctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("browser: start chromedp: %w", err)
	}
	nav, cancelNav := context.WithTimeout(cctx, cfg.NavigateTimeout)
	defer cancelNav()
	if err := chromedp.Run(nav, chromedp.Navigate(pageURL)); err != nil {
		rt.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	log.Info("browser: chromedp page ready", "url", pageURL)
	return rt, nil
}

// NewCDPRuntime wraps an existing chromedp context.
func NewCDPRuntime(cctx context.Context) *CDPRuntime {
	return &CDPRuntime{ctx: cctx, cancel: func() {}}
}

// Context returns the chromedp context.
func (r *CDPRuntime) Context() context.Context { return r.ctx }

// Close releases the browser.
func (r *CDPRuntime) Close() error {
	r.cancel()
	return nil
}

// run executes actions on the chromedp context, bounded by ctx.
func (r *CDPRuntime) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(r.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(rctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (r *CDPRuntime) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := r.run(ctx, chromedp.Evaluate("("+js+")()", &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return raw, nil
}

func (r *CDPRuntime) AddScript(ctx context.Context, s page.Script) error {
	_, err := r.Eval(ctx, page.InjectScript(s))
	return err
}

func (r *CDPRuntime) AddStyle(ctx context.Context, href string) error {
	_, err := r.Eval(ctx, page.InjectStyle(href))
	return err
}

// Listen registers the observer binding and forwards its payloads to b.
func (r *CDPRuntime) Listen(ctx context.Context, b *Bridge) error {
	err := r.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(BindingName).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("browser: add binding: %w", err)
	}
	chromedp.ListenTarget(r.ctx, func(ev any) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == BindingName {
			b.Deliver(e.Payload)
		}
	})
	return nil
}

var _ page.Runtime = (*CDPRuntime)(nil)
var _ page.Runtime = (*RodRuntime)(nil)

