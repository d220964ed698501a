package engine

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/mathdisplay/internal/config"
	"github.com/hazyhaar/mathdisplay/internal/page"
)

// Variant describes one engine: where it comes from, how it is configured
// and how the common operations map onto its JavaScript API. MathJax 3,
// MathJax 2 and KaTeX are variants of the same capability; the controller
// never branches on the engine.
type Variant struct {
	Name      string
	Src       string
	Integrity string
	Styles    []string
	Scripts   []string // auxiliary scripts loaded after Src
	Config    map[string]any

	// Reserved are id/class prefixes of the engine's own output.
	Reserved []string
	// Markers are classes carried by rendered math.
	Markers []string

	prelude func(cfg string) string // inline script run before Src, optional
	content func(cfg string) string // inline text of the Src element, optional
	ready   string
	clear   func(els string) string
	typeset func(els, cfg string) string
	queue   string // optional
}

// HasQueue reports whether the engine exposes its queue depth.
func (v Variant) HasQueue() bool { return v.queue != "" }

// With applies host settings: source overrides and a deep merge of the
// inline configuration over the variant defaults.
func (v Variant) With(s *config.EngineSettings) Variant {
	if s == nil {
		return v
	}
	if s.Src != "" {
		v.Src = s.Src
	}
	if s.Integrity != "" {
		v.Integrity = s.Integrity
	}
	if s.Styles != nil {
		v.Styles = s.Styles
	}
	if s.Scripts != nil {
		v.Scripts = s.Scripts
	}
	v.Config = config.MergeValues(v.Config, s.Config)
	return v
}

// Lookup returns the built-in variant called name.
func Lookup(name string) (Variant, error) {
	switch strings.ToLower(name) {
	case "", "mathjax", "mathjax3":
		return MathJax3(), nil
	case "mathjax2":
		return MathJax2(), nil
	case "katex":
		return KaTeX(), nil
	}
	return Variant{}, fmt.Errorf("engine: unknown engine %q", name)
}

// MathJax3 is MathJax 3.x with CommonHTML output.
func MathJax3() Variant {
	return Variant{
		Name: "mathjax",
		Src:  "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-chtml.js",
		Config: map[string]any{
			"options": map[string]any{
				"enableMenu":       false,
				"ignoreHtmlClass":  "ckeditor",
				"processHtmlClass": "tex2jax_process",
			},
			// The first pass goes through the controller so it is
			// followed by a resize like every other pass.
			"startup": map[string]any{"typeset": false},
		},
		Reserved: []string{"MathJax", "mjx-"},
		Markers:  []string{"MathJax", "MathJax_Display"},
		prelude: func(cfg string) string {
			return "window.MathJax = Object.assign(window.MathJax || {}, " + cfg + ");"
		},
		ready: `() => !!(window.MathJax && typeof window.MathJax.typesetPromise === 'function')`,
		clear: func(els string) string {
			return "() => { window.MathJax.typesetClear(" + els + "); return true; }"
		},
		typeset: func(els, _ string) string {
			return "() => window.MathJax.typesetPromise(" + els + ").then(() => true)"
		},
	}
}

// MathJax2 is MathJax 2.7 configured through MathJax.Hub.Config.
func MathJax2() Variant {
	return Variant{
		Name: "mathjax2",
		Src:  "https://cdnjs.cloudflare.com/ajax/libs/mathjax/2.7.4/MathJax.js",
		Config: map[string]any{
			"extensions":         []any{"tex2jax.js"},
			"jax":                []any{"input/TeX", "output/HTML-CSS"},
			"messageStyle":       "none",
			"skipStartupTypeset": true,
		},
		Reserved: []string{"MathJax"},
		Markers:  []string{"MathJax", "MathJax_Display"},
		content: func(cfg string) string {
			return "MathJax.Hub.Config(" + cfg + ");"
		},
		ready: `() => !!(window.MathJax && window.MathJax.Hub && window.MathJax.Hub.queue)`,
		// MathJax 2 reprocesses in place; there is nothing to clear.
		clear: func(string) string { return "() => true" },
		typeset: func(els, _ string) string {
			return `() => new Promise((resolve) => window.MathJax.Hub.Queue(["Typeset", window.MathJax.Hub, ` + els + `], () => resolve(true)))`
		},
		queue: `() => ({running: window.MathJax.Hub.queue.running, pending: window.MathJax.Hub.queue.pending})`,
	}
}

// KaTeX is KaTeX with the auto-render extension.
func KaTeX() Variant {
	return Variant{
		Name:    "katex",
		Src:     "https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.js",
		Styles:  []string{"https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.css"},
		Scripts: []string{"https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/contrib/auto-render.min.js"},
		Config: map[string]any{
			"delimiters": []any{
				map[string]any{"left": "$$", "right": "$$", "display": true},
				map[string]any{"left": `\[`, "right": `\]`, "display": true},
				map[string]any{"left": `\(`, "right": `\)`, "display": false},
			},
			"throwOnError": false,
		},
		Reserved: []string{"katex"},
		Markers:  []string{"katex", "katex-display"},
		ready:    `() => typeof window.renderMathInElement === 'function'`,
		// auto-render replaces the source text; there is nothing to clear.
		clear: func(string) string { return "() => true" },
		typeset: func(els, cfg string) string {
			return "() => { const cfg = " + cfg + "; (" + els + " || [document.body]).forEach((el) => window.renderMathInElement(el, cfg)); return true; }"
		},
	}
}

func (v Variant) configLiteral() string {
	return page.Literal(v.Config)
}
