// Package integrations holds the site-specific scrapers that turn a rendered
// third-party page into JSON, and the dispatcher that picks between them.
package integrations

import (
	"log/slog"

	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/models"
)

// Integration names reported by Dispatcher.
const (
	NameFirestore = "firestore"
	NameGitHub    = "github"
	NameOpenGraph = "opengraph"
)

// Dispatcher tries the integrations in priority order and returns the
// first non-empty result set.
type Dispatcher struct{}

// NewDispatcher creates a Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch runs the integrations against page. An empty result is not an
// error; the only error is ErrStructure from the database console scraper.
func (d *Dispatcher) Dispatch(page dom.Page) ([]models.ExtractionResult, error) {
	results, _, err := d.DispatchNamed(page)
	return results, err
}

// DispatchNamed is Dispatch that also reports which integration produced
// the results ("" when none did).
func (d *Dispatcher) DispatchNamed(page dom.Page) ([]models.ExtractionResult, string, error) {
	// ── 1. Database console: the URL alone decides. ──
	// An empty console page does not fall through to the other
	// integrations.
	if IsFirestoreConsole(page.URL()) {
		slog.Debug("dispatcher: database console detected", "url", page.URL())
		results, err := Firestore(page)
		if err != nil {
			return nil, NameFirestore, err
		}
		return results, NameFirestore, nil
	}

	// ── 2. Source hosting blob view ──
	if results := GitHub(page); len(results) > 0 {
		slog.Debug("dispatcher: github blob detected", "url", page.URL())
		return results, NameGitHub, nil
	}

	// ── 3. Open Graph fallback ──
	if results := OpenGraph(page); len(results) > 0 {
		return results, NameOpenGraph, nil
	}
	return nil, "", nil
}
