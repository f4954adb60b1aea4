package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBlankPage is returned when the browser produced no document, usually
// because navigation was aborted before anything rendered.
var ErrBlankPage = errors.New("browser rendered a blank page")

// RodFetchFunc renders a page in headless Chrome. The scraper package
// provides it; engine never imports scraper.
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine loads pages in the shared browser. The stealth variant is
// registered as its own engine so the dispatcher can escalate to it after
// the plain browser has had its head start.
type RodEngine struct {
	fetch   RodFetchFunc
	stealth bool
}

// NewRodEngine wraps fetch. With stealth set every load runs with the
// stealth evasions, whatever the request asked for.
func NewRodEngine(fetch RodFetchFunc, stealth bool) *RodEngine {
	return &RodEngine{fetch: fetch, stealth: stealth}
}

func (e *RodEngine) Name() string {
	if e.stealth {
		return "rod-stealth"
	}
	return "rod"
}

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetch == nil {
		return nil, fmt.Errorf("%s: no browser attached", e.Name())
	}

	r := *req
	r.Stealth = r.Stealth || e.stealth

	result, err := e.fetch(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	if strings.TrimSpace(result.HTML) == "" {
		return nil, fmt.Errorf("%s: %s: %w", e.Name(), req.URL, ErrBlankPage)
	}

	// The page script cannot always see its own sandbox; the CSP header
	// of the main document is authoritative when the browser captured it.
	if !result.Sandboxed && result.Headers != nil {
		result.Sandboxed = SandboxedByCSP(result.Headers)
	}
	result.EngineName = e.Name()
	return result, nil
}
