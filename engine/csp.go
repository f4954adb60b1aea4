package engine

import (
	"net/http"
	"strings"
)

// SandboxedByCSP reports whether any Content-Security-Policy header carries
// the sandbox directive. Sandboxed documents cannot host the embedded viewer
// auto mode injects.
func SandboxedByCSP(h http.Header) bool {
	for _, policy := range h.Values("Content-Security-Policy") {
		if strings.Contains(strings.ToLower(policy), "sandbox") {
			return true
		}
	}
	return false
}
