// Package filter reduces raw DOM mutation batches to the minimal set of
// subtrees worth handing to the typesetting engine.
package filter

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/mathdetect"
	"github.com/hazyhaar/mathdisplay/mutation"
)

// Policy selects how strictly mutation targets are pre-checked.
type Policy string

const (
	// PolicyContent keeps only targets whose text holds a math delimiter.
	// Cheap and precise, but a target whose own text has no delimiter is
	// skipped even if a later descendant would.
	PolicyContent Policy = "content"
	// PolicyAll keeps every mutation that is not engine output.
	PolicyAll Policy = "all"
)

// Config tunes the filter.
type Config struct {
	Policy Policy
	// Reserved are id/class prefixes of the engine's own output.
	// Default: MathJax, mjx-.
	Reserved []string
	// Markers are classes carried by rendered math. Default: MathJax,
	// MathJax_Display.
	Markers []string
	// IgnoreInside drops targets sitting below an element with one of
	// these classes. Default: ck (CKEditor editing areas).
	IgnoreInside []string
	// Within restricts targets to this subtree. Nil means no restriction.
	Within dom.Node
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Policy == "" {
		c.Policy = PolicyContent
	}
	if c.Reserved == nil {
		c.Reserved = []string{"MathJax", "mjx-"}
	}
	if c.Markers == nil {
		c.Markers = []string{"MathJax", "MathJax_Display"}
	}
	if c.IgnoreInside == nil {
		c.IgnoreInside = []string{"ck"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Filter decides which mutation records matter.
type Filter struct {
	cfg Config
}

// New creates a Filter.
func New(cfg Config) *Filter {
	cfg.defaults()
	return &Filter{cfg: cfg}
}

// Markers returns the rendered-output marker classes.
func (f *Filter) Markers() []string { return f.cfg.Markers }

// Relevant reports whether a single record should lead to a typeset pass.
func (f *Filter) Relevant(r mutation.Record) bool {
	t := r.Target
	if t == nil || len(r.Added) == 0 {
		return false
	}
	if dom.HasPrefix(t, f.cfg.Reserved) {
		return false
	}
	if !isContent(t) {
		return false
	}
	if f.cfg.Within != nil && !dom.Covers(f.cfg.Within, t) {
		return false
	}
	if dom.InsideClass(t, f.cfg.IgnoreInside) {
		return false
	}
	if f.cfg.Policy == PolicyContent && !mathdetect.ContainsDelimiter(t.TextContent()) {
		return false
	}
	return true
}

// Apply returns the minimal target list for records. It is pure: the same
// batch always yields the same list.
func (f *Filter) Apply(records []mutation.Record) []dom.Node {
	s := NewSet()
	f.Into(s, records)
	return s.Nodes()
}

// Into accumulates the relevant targets of records into s and returns how
// many were inserted.
func (f *Filter) Into(s *Set, records []mutation.Record) int {
	n := 0
	for _, r := range records {
		if !f.Relevant(r) {
			continue
		}
		if s.Add(r.Target) {
			n++
		}
	}
	if n > 0 {
		f.cfg.Logger.Debug("filter: targets queued", "records", len(records), "inserted", n, "pending", s.Len())
	}
	return n
}

// MathAdded reports whether any record inserted a node carrying a marker
// class, that is, whether the engine just rendered math.
func (f *Filter) MathAdded(records []mutation.Record) bool {
	for _, r := range records {
		for _, n := range r.Added {
			if n != nil && dom.HasAnyClass(n, f.cfg.Markers) {
				return true
			}
		}
	}
	return false
}

// nonContent are containers whose children never hold rendered content.
var nonContent = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"title":    true,
	"noscript": true,
	"template": true,
}

func isContent(n dom.Node) bool {
	if nonContent[n.Tag()] {
		return false
	}
	return !strings.HasPrefix(n.Path(), "/html/head")
}
