// CLAUDE:SUMMARY Computes XPath locators for in-memory nodes (sibling-indexed, html/head/body unindexed).
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// xpath computes the locator of n: "/html/body/div[2]/p". Sibling indices
// are only emitted when more than one sibling shares the tag.
func xpath(n *html.Node) string {
	switch n.Type {
	case html.DocumentNode:
		return "/"
	case html.TextNode:
		return parentPath(n) + "/text()"
	case html.CommentNode:
		return parentPath(n) + "/comment()"
	case html.ElementNode:
		// fall through
	default:
		return parentPath(n)
	}

	name := strings.ToLower(n.Data)
	switch name {
	case "html":
		return "/html"
	case "head", "body":
		return "/html/" + name
	}

	if n.Parent == nil {
		return "/" + name
	}

	idx, total := 0, 0
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || strings.ToLower(sib.Data) != name {
			continue
		}
		total++
		if sib == n {
			idx = total
		}
	}

	if total > 1 {
		return fmt.Sprintf("%s/%s[%d]", parentPath(n), name, idx)
	}
	return parentPath(n) + "/" + name
}

func parentPath(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}
	p := xpath(n.Parent)
	if p == "/" {
		return ""
	}
	return p
}
