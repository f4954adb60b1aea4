// Package dom is the read-only query surface every scraper works against.
//
// Scrapers only see the Node and Page interfaces, so they can be exercised
// against synthetic HTML trees as easily as against a rendered page. The
// goquery-backed implementation in this package never mutates the tree.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is one element of the page.
type Node interface {
	// Tag returns the lower-case tag name ("pre", "fs-animate-changes", ...).
	Tag() string

	// Classes returns the class list in attribute order.
	Classes() []string

	// Attr returns the raw attribute value.
	Attr(name string) (string, bool)

	// Text returns the concatenated text of all descendant text nodes,
	// the equivalent of textContent.
	Text() string

	// Children returns the element children in document order.
	Children() []Node

	// Query returns the first descendant matching selector.
	Query(selector string) (Node, bool)

	// QueryAll returns every descendant matching selector in document order.
	QueryAll(selector string) []Node
}

// Page is a loaded document and the address it was loaded from.
type Page interface {
	URL() string
	Root() Node
	Body() (Node, bool)
}

// Document is the goquery-backed Page.
type Document struct {
	url  string
	doc  *goquery.Document
	root Node
}

// Parse builds a Document from rendered HTML. pageURL is reported by URL()
// and used to resolve relative links.
func Parse(rawHTML, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("dom: parse html: %w", err)
	}
	return &Document{
		url:  pageURL,
		doc:  doc,
		root: wrap(doc.Get(0)),
	}, nil
}

func (d *Document) URL() string { return d.url }

func (d *Document) Root() Node { return d.root }

// Body returns the <body> element. html.Parse always synthesises one, but
// fragments built by hand may lack it.
func (d *Document) Body() (Node, bool) {
	return d.root.Query("body")
}

// element wraps a single *html.Node in a goquery selection.
type element struct {
	node *html.Node
	sel  *goquery.Selection
}

func wrap(n *html.Node) Node {
	return &element{node: n, sel: goquery.NewDocumentFromNode(n).Selection}
}

func (e *element) Tag() string {
	return strings.ToLower(goquery.NodeName(e.sel))
}

func (e *element) Classes() []string {
	class, _ := e.sel.Attr("class")
	return strings.Fields(class)
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) Text() string {
	return e.sel.Text()
}

func (e *element) Children() []Node {
	children := e.sel.Children()
	nodes := make([]Node, 0, children.Length())
	for _, n := range children.Nodes {
		nodes = append(nodes, wrap(n))
	}
	return nodes
}

func (e *element) Query(selector string) (Node, bool) {
	m, ok := compile(selector)
	if !ok {
		return nil, false
	}
	n := queryFirst(e.node, m)
	if n == nil {
		return nil, false
	}
	return wrap(n), true
}

func (e *element) QueryAll(selector string) []Node {
	m, ok := compile(selector)
	if !ok {
		return nil
	}
	matches := queryAll(e.node, m)
	nodes := make([]Node, 0, len(matches))
	for _, n := range matches {
		nodes = append(nodes, wrap(n))
	}
	return nodes
}
