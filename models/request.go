package models

// ExtractRequest is the payload for POST /api/v1/extract, /documents and /auto.
//
// Exactly one page source is used, in this order: HTML (with URL as the page
// address), CDPURL (attach to the caller's own Chrome), URL (fetch).
type ExtractRequest struct {
	// URL is the page address. Required; with HTML set it is only used as
	// the page's location for URL-driven scrapers.
	URL string `json:"url" binding:"required,url"`

	// HTML is an already rendered page. When set, no network fetch happens.
	HTML string `json:"html,omitempty"`

	// CDPURL connects to a user-provided Chrome DevTools endpoint instead of
	// the managed browser. Use it for consoles that need a logged-in profile.
	CDPURL string `json:"cdp_url,omitempty"`

	// WaitFor is a CSS selector the browser waits for before capturing the
	// DOM (e.g. ".f7e-field-list" for the database console).
	WaitFor string `json:"wait_for,omitempty"`

	// Timeout is the maximum duration in seconds for loading the page.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions (e.g. navigator.webdriver masking).
	Stealth bool `json:"stealth,omitempty"`

	// Headers are extra request headers sent with the page load.
	Headers map[string]string `json:"headers,omitempty"`

	// Cookies are set on the browser page before navigation.
	Cookies []Cookie `json:"cookies,omitempty"`

	// FetchMode controls the fetching strategy.
	// "auto" (default): race HTTP against the browser.
	// "http": pure HTTP, no JS rendering.
	// "browser": headless Chrome only.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// MaxAge enables the response cache: a cached extraction younger than
	// MaxAge milliseconds is returned without loading the page.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// Option selects which extracted document is sent to the viewer.
	// Default: 0 (the first one).
	Option int `json:"option,omitempty" binding:"omitempty,min=0"`

	// WebhookURL, when set, receives a document.created or document.failed
	// event after /documents and /auto requests.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs webhook bodies with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Cookie is a browser cookie applied before navigation.
type Cookie struct {
	Name   string `json:"name" binding:"required"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}
