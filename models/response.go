package models

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	// Success is true when at least one JSON document was found.
	Success bool `json:"success"`

	// Options lists every document found, in priority order.
	Options []ExtractionResult `json:"options"`

	// SourceURL is the page address after redirects.
	SourceURL string `json:"source_url"`

	// EngineUsed indicates which fetch engine loaded the page
	// (e.g. "http", "rod", "rod-stealth", "inline"). Empty on cache hits.
	EngineUsed string `json:"engine_used,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false and something failed
	// (an empty option list alone is not an error).
	Error *ErrorDetail `json:"error,omitempty"`
}

// DocumentResponse is the response for POST /api/v1/documents and /api/v1/auto.
type DocumentResponse struct {
	Success bool `json:"success"`

	// Title is the title the document was created with.
	Title string `json:"title,omitempty"`

	// Location is the document URL returned by the visualization service.
	Location string `json:"location,omitempty"`

	// ViewerURL is Location decorated with the user's theme and default view.
	ViewerURL string `json:"viewer_url,omitempty"`

	Timing TimingInfo   `json:"timing"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// LoadMs is the time spent fetching and rendering the page.
	LoadMs int64 `json:"load_ms"`

	// ExtractMs is the time spent in the extraction round-trip.
	ExtractMs int64 `json:"extract_ms"`

	// CreateMs is the time spent creating the remote document.
	CreateMs int64 `json:"create_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Sessions  int       `json:"sessions"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}

// ErrorResponse is returned when a request is rejected before any work is
// done (authentication, rate limiting, malformed bodies).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
