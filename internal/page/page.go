// Package page abstracts the JavaScript side of the page the engine runs
// in. Browser drivers (rod, chromedp) implement Runtime; the engine, the
// marker probe and the resize fallback are written against it.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/mathdisplay/dom"
)

// Script is a script element to inject.
type Script struct {
	Src       string // empty for an inline script
	Content   string // inline text, also allowed alongside Src
	Integrity string // subresource integrity hash, optional
}

// Runtime evaluates JavaScript in the page.
type Runtime interface {
	// Eval runs js, a function expression taking no arguments. A returned
	// promise is awaited. The result is returned as JSON.
	Eval(ctx context.Context, js string) (json.RawMessage, error)
	// AddScript injects a script element and waits for it to load.
	AddScript(ctx context.Context, s Script) error
	// AddStyle injects a stylesheet link and waits for it to load.
	AddStyle(ctx context.Context, href string) error
}

// EvalBool runs js and decodes a boolean result.
func EvalBool(ctx context.Context, rt Runtime, js string) (bool, error) {
	raw, err := rt.Eval(ctx, js)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("page: decode bool: %w", err)
	}
	return ok, nil
}

// Scripter is implemented by nodes that know how to reach themselves from
// page JavaScript.
type Scripter interface {
	Script() string
}

// Literal encodes v as a JavaScript literal.
func Literal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// Elements returns a JavaScript expression evaluating to the array of page
// elements for scope, or "undefined" for the whole document.
func Elements(scope []dom.Node) string {
	if len(scope) == 0 {
		return "undefined"
	}
	refs := make([]string, 0, len(scope))
	for _, n := range scope {
		refs = append(refs, Ref(n))
	}
	return "[" + strings.Join(refs, ", ") + "].filter(Boolean)"
}

// Ref returns a JavaScript expression evaluating to the element of n.
func Ref(n dom.Node) string {
	if s, ok := n.(Scripter); ok {
		return s.Script()
	}
	path := n.Path()
	if path == "/" || path == "" {
		return "document.body"
	}
	return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", Literal(path))
}

// InjectScript returns a function expression that appends a script element
// and resolves when it has loaded. Used by drivers without a native helper.
func InjectScript(s Script) string {
	return fmt.Sprintf(`() => new Promise((resolve, reject) => {
	const el = document.createElement('script');
	el.type = 'text/javascript';
	const src = %s, text = %s, integrity = %s;
	if (text) el.text = text;
	if (integrity) { el.integrity = integrity; el.crossOrigin = 'anonymous'; }
	if (!src) { document.head.appendChild(el); resolve(true); return; }
	el.onload = () => resolve(true);
	el.onerror = () => reject(new Error('failed to load ' + src));
	el.src = src;
	document.head.appendChild(el);
})`, Literal(s.Src), Literal(s.Content), Literal(s.Integrity))
}

// InjectStyle returns a function expression that appends a stylesheet
// link and resolves when it has loaded.
func InjectStyle(href string) string {
	return fmt.Sprintf(`() => new Promise((resolve, reject) => {
	const el = document.createElement('link');
	el.rel = 'stylesheet';
	el.onload = () => resolve(true);
	el.onerror = () => reject(new Error('failed to load ' + %[1]s));
	el.href = %[1]s;
	document.head.appendChild(el);
})`, Literal(href))
}
