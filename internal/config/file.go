// CLAUDE:SUMMARY Defines mathdisplay config structs, defaults, and YAML parsing.
// Package config handles math display configuration from YAML files or
// the host's SQLite library configuration store.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Observer names.
const (
	ObserverMutation   = "mutationObserver"
	ObserverDOMChanged = "domChangedListener"
	ObserverInterval   = "interval"
)

// Config is the top-level configuration.
type Config struct {
	// Container selects the observed node (CSS selector). Empty means the
	// first .h5p-container, else the whole document.
	Container string `yaml:"container"`
	// Params are the host content parameters. When set and free of math,
	// the engine is never loaded.
	Params        map[string]any   `yaml:"params,omitempty"`
	Observers     []ObserverConfig `yaml:"observers"`
	Renderer      RendererConfig   `yaml:"renderer"`
	Loader        LoaderConfig     `yaml:"loader"`
	Filter        FilterConfig     `yaml:"filter"`
	Resize        ResizeConfig     `yaml:"resize"`
	RenderTimeout Millis           `yaml:"render_timeout"`
	Browser       BrowserConfig    `yaml:"browser"`
	Hosts         []HostConfig     `yaml:"hosts"`
}

// ObserverConfig activates one update source.
type ObserverConfig struct {
	Name   string         `yaml:"name"` // mutationObserver | domChangedListener | interval
	Params ObserverParams `yaml:"params"`
}

// ObserverParams are the per-observer parameters. Both take milliseconds
// or a duration string.
type ObserverParams struct {
	// Cooldown is the typeset debounce of the mutation observer. Zero is
	// valid (next loop turn), hence the pointer.
	Cooldown *Millis `yaml:"cooldown"`
	// Time is the period of the interval observer.
	Time Millis `yaml:"time"`
}

// RendererConfig selects and configures the engine.
type RendererConfig struct {
	Engine   string          `yaml:"engine"` // mathjax | mathjax2 | katex
	MathJax  *EngineSettings `yaml:"mathjax"`
	MathJax2 *EngineSettings `yaml:"mathjax2"`
	KaTeX    *EngineSettings `yaml:"katex"`
}

// Settings returns the settings of the selected engine, nil if none.
func (r RendererConfig) Settings() *EngineSettings {
	switch r.Engine {
	case "mathjax2":
		return r.MathJax2
	case "katex":
		return r.KaTeX
	default:
		return r.MathJax
	}
}

// EngineSettings overrides an engine's sources and inline configuration.
type EngineSettings struct {
	Src       string         `yaml:"src"`
	Integrity string         `yaml:"integrity"`
	Config    map[string]any `yaml:"config"`
	Styles    []string       `yaml:"styles"`
	Scripts   []string       `yaml:"scripts"`
}

// LoaderConfig bounds the wait for the engine.
type LoaderConfig struct {
	PollInterval Millis `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
}

// FilterConfig tunes the mutation filter.
type FilterConfig struct {
	Policy        string   `yaml:"policy"` // content | all
	IgnoreClasses []string `yaml:"ignore_classes"`
}

// ResizeConfig tunes the resize notifier.
type ResizeConfig struct {
	// Policy is scope (probe the rendered scope for output markers) or
	// observed (markers seen in mutation records during the session).
	Policy string `yaml:"policy"`
}

// BrowserConfig controls the page driver used by the CLI.
type BrowserConfig struct {
	Driver           string   `yaml:"driver"` // rod | chromedp
	Remote           string   `yaml:"remote"`
	Headful          bool     `yaml:"headful"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// HostConfig defines a host notification backend.
type HostConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// DefaultCooldown is the mutation observer debounce when none is set.
const DefaultCooldown = 500 * time.Millisecond

// Default returns the configuration used when the host sets nothing.
func Default() *Config {
	cooldown := Millis(DefaultCooldown)
	return &Config{
		Observers: []ObserverConfig{
			{Name: ObserverMutation, Params: ObserverParams{Cooldown: &cooldown}},
			{Name: ObserverDOMChanged},
		},
		Renderer:      RendererConfig{Engine: "mathjax"},
		Loader:        LoaderConfig{PollInterval: Millis(100 * time.Millisecond), PollAttempts: 50},
		Filter:        FilterConfig{Policy: "content", IgnoreClasses: []string{"ck"}},
		Resize:        ResizeConfig{Policy: "scope"},
		RenderTimeout: Millis(30 * time.Second),
		Browser:       BrowserConfig{Driver: "rod"},
	}
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML (or JSON) configuration and layers it over Default.
func Parse(data []byte) (*Config, error) {
	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Merge(Default(), cfg), nil
}

// Decode decodes configuration without applying defaults, for layering
// with Merge.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.resolveEngine()
	return &cfg, nil
}

// Cooldown returns the configured mutation observer cooldown.
func (c *Config) Cooldown() time.Duration {
	for _, o := range c.Observers {
		if o.Name == ObserverMutation && o.Params.Cooldown != nil {
			return o.Params.Cooldown.Duration()
		}
	}
	return DefaultCooldown
}

// resolveEngine picks the engine from the configured renderers when none
// is named explicitly.
func (c *Config) resolveEngine() {
	if c.Renderer.Engine != "" {
		return
	}
	switch {
	case c.Renderer.MathJax != nil:
		c.Renderer.Engine = "mathjax"
	case c.Renderer.MathJax2 != nil:
		c.Renderer.Engine = "mathjax2"
	case c.Renderer.KaTeX != nil:
		c.Renderer.Engine = "katex"
	}
}
