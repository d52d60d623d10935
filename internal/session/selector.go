// internal/session/selector.go
package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StructuralSelector computes a CSS path for an element so it can be
// re-located later. An element with an id is addressed as "#id" verbatim;
// otherwise the path walks from the document root down to the element using
// tag name plus class list at every step. The selector is best effort: it is
// not guaranteed unique, and re-querying it after the page mutates may
// resolve to a different element or to nothing.
func StructuralSelector(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	return selectorForNode(sel.Nodes[0])
}

func selectorForNode(node *html.Node) string {
	if id := nodeAttr(node, "id"); id != "" {
		return "#" + id
	}

	var path []string
	for cur := node; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		step := strings.ToLower(cur.Data)
		if class := strings.TrimSpace(nodeAttr(cur, "class")); class != "" {
			step += "." + strings.Join(strings.Fields(class), ".")
		}
		path = append([]string{step}, path...)
	}
	return strings.Join(path, " > ")
}

func nodeAttr(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// TypeLabel derives a display label for a selected element from its tag name
// or class list.
func TypeLabel(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return "Element"
	}
	switch strings.ToLower(sel.Nodes[0].Data) {
	case "a":
		return "Link"
	case "img":
		return "Image"
	case "button":
		return "Button"
	case "input":
		return "Input"
	case "select":
		return "Select"
	case "textarea":
		return "Textarea"
	}
	if sel.HasClass("product") {
		return "Product"
	}
	if sel.HasClass("item") {
		return "Item"
	}
	return "Element"
}
