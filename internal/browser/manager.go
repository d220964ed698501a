// CLAUDE:SUMMARY Opens the math display page through Rod (local launch or remote Chrome) as a closable page Runtime.
// Package browser drives the live page the math display runs in: Chrome
// lifecycle through Rod (or chromedp), page Runtimes for both drivers, and
// the injected MutationObserver bridged back to Go.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultNavigateTimeout bounds navigation and load of the page.
const DefaultNavigateTimeout = 30 * time.Second

// Config selects how the page's browser is obtained. Both drivers read it.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local one.
	RemoteURL string

	Headful bool

	// ResourceBlocking lists resource types to block (image, font, media).
	// Engine scripts and stylesheets always load.
	ResourceBlocking []string

	// Stealth patches the page against automation detection. Default: true.
	// Rod only.
	Stealth *bool

	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Stealth == nil {
		on := true
		c.Stealth = &on
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = DefaultNavigateTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// RodPage is a loaded Rod page together with the browser process behind
// it. It is the Rod counterpart of CDPRuntime.
type RodPage struct {
	*RodRuntime
	url string

	once    sync.Once
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// OpenRod launches (or connects to) Chrome, opens a tab on pageURL and
// waits for it to load. A load timeout is logged, not returned: typesetting
// an incomplete page is still useful.
func OpenRod(ctx context.Context, cfg Config, pageURL string) (*RodPage, error) {
	cfg.defaults()
	log := cfg.Logger.With("driver", "rod")

	p := &RodPage{url: pageURL}
	ws := cfg.RemoteURL
	if ws == "" {
		l := launcher.New().Context(ctx).
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		ws, p.lnch = u, l
	}
	log.Info("browser: connecting", "url", ws, "remote", cfg.RemoteURL != "")

	p.browser = rod.New().ControlURL(ws)
	if err := p.browser.Connect(); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	tab, err := p.newTab(*cfg.Stealth)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	p.RodRuntime = NewRodRuntime(tab)
	if len(cfg.ResourceBlocking) > 0 {
		blockResources(tab, newBlocklist(cfg.ResourceBlocking))
	}

	nav, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
	defer cancel()
	if err := tab.Context(nav).Navigate(pageURL); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := tab.Context(nav).WaitLoad(); err != nil {
		log.Warn("browser: page load incomplete", "url", pageURL, "error", err)
	}
	log.Info("browser: page ready", "url", pageURL)
	return p, nil
}

func (p *RodPage) newTab(stealthy bool) (*rod.Page, error) {
	if stealthy {
		return stealth.Page(p.browser)
	}
	return p.browser.Page(proto.TargetCreateTarget{})
}

// URL returns the address the page was opened on.
func (p *RodPage) URL() string { return p.url }

// Close closes the tab and the browser, and removes a locally launched
// Chrome. Safe to call more than once.
func (p *RodPage) Close() error {
	var errs []error
	p.once.Do(func() {
		if p.RodRuntime != nil {
			errs = append(errs, p.page.Close())
		}
		if p.browser != nil {
			errs = append(errs, p.browser.Close())
		}
		if p.lnch != nil {
			p.lnch.Cleanup()
		}
	})
	return errors.Join(errs...)
}
