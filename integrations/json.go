package integrations

import (
	"bytes"
	"encoding/json"
)

// ParseJSON reports whether text is a complete JSON document and returns it
// compacted. Any JSON value counts, including null, false, 0 and "".
// Numbers are checked against the grammar only, so values beyond float64
// range are still accepted and kept as written.
func ParseJSON(text string) (json.RawMessage, bool) {
	src := []byte(text)
	if !json.Valid(src) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, src); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}
