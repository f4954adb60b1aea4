// Package extractor runs the extraction flow for one loaded page: inline
// JSON first, then the site integrations.
package extractor

import (
	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/integrations"
	"github.com/use-agent/jsonpick/models"
)

// Inline extracts a JSON document served as the page itself, which browsers
// render as a lone <pre> element. The page must start with the <pre>.
func Inline(page dom.Page) []models.ExtractionResult {
	body, ok := page.Body()
	if !ok {
		return nil
	}
	children := body.Children()
	if len(children) == 0 || children[0].Tag() != "pre" {
		return nil
	}
	doc, ok := integrations.ParseJSON(children[0].Text())
	if !ok {
		return nil
	}
	return []models.ExtractionResult{{Title: page.URL(), JSON: doc}}
}
