package models

// ExtractionResult is one JSON document found on a page.
//
// JSON holds any JSON-compatible value: a map, an ordered map, a slice, a
// string, a float64, a bool, nil, or a json.RawMessage carrying text that was
// parsed from the page verbatim.
type ExtractionResult struct {
	Title string `json:"title"`
	JSON  any    `json:"json"`

	// Unrecognized lists the dotted paths of values the scraper could not
	// decode. They are missing from JSON, or null inside arrays, so callers
	// can tell them apart from fields that are absent on the page.
	Unrecognized []string `json:"unrecognized,omitempty"`
}

// Message actions understood by a page session.
const (
	ActionExtractJSON     = "extractJson"
	ActionDisableAutoMode = "disableAutoMode"
)

// Message is a request delivered to a page session.
type Message struct {
	Action string `json:"action"`
}

// Reply answers an extractJson message.
type Reply struct {
	Success bool               `json:"success"`
	Options []ExtractionResult `json:"options,omitempty"`

	// Error is set when extraction aborted on a structural violation.
	Error *ErrorDetail `json:"error,omitempty"`
}
