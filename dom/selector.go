package dom

import (
	"log/slog"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// selectors caches compiled selectors; scrapers reuse a handful of constant
// selectors on every page.
var selectors sync.Map // string -> cascadia.Sel

// compile parses selector once. An invalid selector matches nothing.
func compile(selector string) (cascadia.Sel, bool) {
	if cached, ok := selectors.Load(selector); ok {
		return cached.(cascadia.Sel), true
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		slog.Warn("dom: invalid selector", "selector", selector, "error", err)
		return nil, false
	}
	selectors.Store(selector, sel)
	return sel, true
}

// queryFirst returns the first descendant of n (excluding n) matching m.
func queryFirst(n *html.Node, m cascadia.Matcher) *html.Node {
	return cascadia.Query(n, m)
}

// queryAll returns all descendants of n (excluding n) matching m, in
// document order.
func queryAll(n *html.Node, m cascadia.Matcher) []*html.Node {
	return cascadia.QueryAll(n, m)
}
