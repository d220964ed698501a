// Package dom is the node model the math display controller works on.
//
// A Node is any comparable handle on a document node: two handles on the
// same underlying node must compare equal with ==. Two implementations
// exist: the in-memory Document in this package (golang.org/x/net/html)
// and the live page nodes of internal/browser.
package dom

import "strings"

// Node is a read-only view of a document node.
type Node interface {
	// Parent returns the parent node, or nil at the document root.
	Parent() Node
	// Tag is the lower-case element name. Empty for the document itself.
	Tag() string
	ID() string
	Classes() []string
	// TextContent is the concatenated text of the node and its subtree.
	TextContent() string
	// Path is an XPath-like locator. The document is "/".
	Path() string
}

// IsAncestor reports whether a is a strict ancestor of n.
func IsAncestor(a, n Node) bool {
	if a == nil || n == nil {
		return false
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}

// Covers reports whether n is a or lies inside a.
func Covers(a, n Node) bool {
	return a != nil && (a == n || IsAncestor(a, n))
}

// HasClass reports whether n carries class c.
func HasClass(n Node, c string) bool {
	for _, have := range n.Classes() {
		if have == c {
			return true
		}
	}
	return false
}

// HasAnyClass reports whether n carries one of classes.
func HasAnyClass(n Node, classes []string) bool {
	for _, c := range classes {
		if HasClass(n, c) {
			return true
		}
	}
	return false
}

// HasPrefix reports whether the id or any class of n begins with one of
// prefixes.
func HasPrefix(n Node, prefixes []string) bool {
	id := n.ID()
	classes := n.Classes()
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasPrefix(id, p) {
			return true
		}
		for _, c := range classes {
			if strings.HasPrefix(c, p) {
				return true
			}
		}
	}
	return false
}

// InsideClass reports whether any strict ancestor of n carries one of
// classes.
func InsideClass(n Node, classes []string) bool {
	if len(classes) == 0 {
		return false
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if HasAnyClass(p, classes) {
			return true
		}
	}
	return false
}

// SplitClasses splits a class attribute value into its class names.
func SplitClasses(attr string) []string {
	return strings.Fields(attr)
}
