package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an in-memory HTML document. It is not safe for concurrent
// mutation; readers may share it once edits have stopped.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document held in s.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root}
}

// Root returns the document node.
func (d *Document) Root() Node { return Wrap(d.root) }

// Body returns the body element, or the document when there is none.
func (d *Document) Body() Node {
	if n := d.First("body"); n != nil {
		return n
	}
	return d.Root()
}

// Find returns the elements matching a CSS selector in document order.
func (d *Document) Find(selector string) []Node {
	sel := goquery.NewDocumentFromNode(d.root).Find(selector)
	out := make([]Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, Wrap(n))
	}
	return out
}

// First returns the first element matching selector, or nil.
func (d *Document) First(selector string) Node {
	sel := goquery.NewDocumentFromNode(d.root).Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return Wrap(sel.Nodes[0])
}

// Insert parses fragment in the context of parent and appends the
// resulting nodes to it. The inserted nodes are returned.
func (d *Document) Insert(parent Node, fragment string) ([]Node, error) {
	p, ok := Unwrap(parent)
	if !ok {
		return nil, fmt.Errorf("dom: insert: parent is not an in-memory node")
	}
	holder := p
	if p.Type != html.ElementNode {
		holder = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), holder)
	if err != nil {
		return nil, fmt.Errorf("dom: insert: %w", err)
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		p.AppendChild(n)
		out = append(out, Wrap(n))
	}
	return out, nil
}

// Remove detaches n from its parent.
func (d *Document) Remove(n Node) {
	if h, ok := Unwrap(n); ok && h.Parent != nil {
		h.Parent.RemoveChild(h)
	}
}

// ContainsMarker reports whether any element below the scope nodes
// carries one of classes. A nil scope means the whole document.
func (d *Document) ContainsMarker(ctx context.Context, scope []Node, classes []string) (bool, error) {
	n, err := d.CountMarkers(ctx, scope, classes)
	return n > 0, err
}

// CountMarkers counts the elements below the scope nodes that carry one
// of classes. A nil scope means the whole document.
func (d *Document) CountMarkers(_ context.Context, scope []Node, classes []string) (int, error) {
	if len(classes) == 0 {
		return 0, nil
	}
	selector := ClassSelector(classes)
	if len(scope) == 0 {
		scope = []Node{d.Root()}
	}
	total := 0
	for _, s := range scope {
		h, ok := Unwrap(s)
		if !ok {
			continue
		}
		total += goquery.NewDocumentFromNode(h).Find(selector).Length()
	}
	return total, nil
}

// Render serialises the document.
func (d *Document) Render() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, d.root); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return b.String(), nil
}

// ClassSelector builds ".a, .b" from class names.
func ClassSelector(classes []string) string {
	parts := make([]string, 0, len(classes))
	for _, c := range classes {
		parts = append(parts, "."+c)
	}
	return strings.Join(parts, ", ")
}

// element is the in-memory Node. It is a value type so that two wraps of
// the same *html.Node compare equal.
type element struct {
	n *html.Node
}

// Wrap returns the Node for h, or nil when h is nil.
func Wrap(h *html.Node) Node {
	if h == nil {
		return nil
	}
	return element{n: h}
}

// Unwrap returns the underlying *html.Node of an in-memory Node.
func Unwrap(n Node) (*html.Node, bool) {
	e, ok := n.(element)
	if !ok {
		return nil, false
	}
	return e.n, true
}

func (e element) Parent() Node { return Wrap(e.n.Parent) }

func (e element) Tag() string {
	if e.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(e.n.Data)
}

func (e element) ID() string { return attr(e.n, "id") }

func (e element) Classes() []string { return SplitClasses(attr(e.n, "class")) }

func (e element) TextContent() string {
	var b strings.Builder
	collectText(e.n, &b)
	return b.String()
}

func (e element) Path() string { return xpath(e.n) }

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
