// Package htmltree wraps a parsed HTML document with the small tree surface
// the mining engine needs: element children, canonical serialization of a
// span of sibling subtrees, and CSS selection of the mining root.
package htmltree

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse reads and parses HTML from s.
func Parse(s string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Root returns the first element matched by selector, or the <html> element
// when selector is empty.
//
// Errors:
//   - Returns an error if the selector matches nothing.
func (d *Document) Root(selector string) (*html.Node, error) {
	if strings.TrimSpace(selector) == "" {
		selector = "html"
	}
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("selector %q matched no element", selector)
	}
	return sel.Get(0), nil
}

// ElementChildren returns the element children of node, in document order.
// Text, comment and doctype nodes are not part of the mined tree.
func ElementChildren(node *html.Node) []*html.Node {
	var out []*html.Node
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Tag returns the element tag of node, or a type label for non-elements.
func Tag(node *html.Node) string {
	if node.Type == html.ElementNode {
		return node.Data
	}
	return "#" + nodeTypeName(node.Type)
}

// SpanHTML serializes a contiguous span of sibling subtrees into one
// canonical string: each node's outer HTML, trimmed, space-joined.
//
// This string is the input to the similarity primitive, so it must be
// deterministic for identical subtrees; html.Render guarantees that.
func SpanHTML(nodes []*html.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		var b strings.Builder
		if err := html.Render(&b, n); err != nil {
			// Render only fails on writer errors; strings.Builder has none.
			continue
		}
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return strings.Join(parts, " ")
}

// SpanText extracts the trimmed visible text of a span of sibling subtrees,
// space-joined. Used by the CLI's -text output mode.
func SpanText(nodes []*html.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		t := strings.TrimSpace(collectText(n))
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func collectText(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var b strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

func nodeTypeName(t html.NodeType) string {
	switch t {
	case html.TextNode:
		return "text"
	case html.CommentNode:
		return "comment"
	case html.DocumentNode:
		return "document"
	case html.DoctypeNode:
		return "doctype"
	default:
		return "node"
	}
}
