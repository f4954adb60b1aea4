// Package engine loads pages for extraction. Engines of different weight
// (plain HTTP, headless Chrome, headless Chrome with stealth) race each other
// and the first usable page wins.
package engine

import (
	"context"
	"net/http"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod", "rod-stealth").
	Name() string

	// Fetch loads the page for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to load a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Cookies []http.Cookie
	Timeout time.Duration
	Stealth bool

	// WaitFor is a CSS selector that must be present before the page counts
	// as loaded. Engines that cannot wait fail when it is absent so heavier
	// engines get their turn.
	WaitFor string
}

// FetchResult is a loaded page.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string

	// Headers are the response headers of the main document, when the
	// engine can observe them.
	Headers http.Header

	// Sandboxed is set when the document runs in a CSP sandbox, whether
	// learned from Headers or from the rendered page itself.
	Sandboxed bool
}
