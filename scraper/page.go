package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/jsonpick/engine"
	"github.com/use-agent/jsonpick/models"
)

// Engine names reported for pages this package renders directly.
const (
	EngineRod        = "rod"
	EngineRodStealth = "rod-stealth"
	EngineCDP        = "cdp"
)

// Load materialises the page named by req.
//
//   - CDPURL set: render in the caller's own Chrome.
//   - fetch_mode "browser": render in the managed browser.
//   - fetch_mode "http": the HTTP engine only.
//   - fetch_mode "auto": race the engines; fall back to the browser if the
//     race produced nothing.
func (s *Scraper) Load(ctx context.Context, req *models.ExtractRequest) (*engine.FetchResult, error) {
	fetchReq := s.fetchRequest(req)
	ctx, cancel := context.WithTimeout(ctx, fetchReq.Timeout)
	defer cancel()

	// ── 1. User's own Chrome ──────────────────────────────────────────
	if req.CDPURL != "" {
		return s.loadWithCDP(ctx, req.CDPURL, fetchReq)
	}

	switch req.FetchMode {
	case "browser":
		return s.loadRod(ctx, fetchReq)
	case "http":
		if s.dispatcher == nil {
			return nil, models.NewExtractError(models.ErrCodeInvalidInput, "fetch_mode http requires the multi-engine dispatcher", nil)
		}
		result, err := s.dispatcher.FetchWith(ctx, "http", fetchReq)
		if err != nil {
			return nil, categorizeError(err, "http fetch failed")
		}
		return result, nil
	}

	// ── 2. Multi-engine race ──────────────────────────────────────────
	if s.dispatcher != nil {
		result, err := s.dispatcher.Dispatch(ctx, fetchReq)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "page load timed out")
		}
		slog.Warn("dispatcher failed, falling back to direct rod load", "url", req.URL, "error", err)
	}
	return s.loadRod(ctx, fetchReq)
}

// RodFetch renders a page in the managed browser. It is the callback behind
// engine.RodEngine and never goes through the dispatcher.
func (s *Scraper) RodFetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	return s.loadRod(ctx, req)
}

func (s *Scraper) fetchRequest(req *models.ExtractRequest) *engine.FetchRequest {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = s.scraperCfg.DefaultTimeout
	}
	if timeout > s.scraperCfg.MaxTimeout {
		timeout = s.scraperCfg.MaxTimeout
	}

	cookies := make([]http.Cookie, len(req.Cookies))
	for i, c := range req.Cookies {
		cookies[i] = http.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path}
	}

	return &engine.FetchRequest{
		URL:     req.URL,
		Headers: req.Headers,
		Cookies: cookies,
		Timeout: timeout,
		Stealth: req.Stealth,
		WaitFor: req.WaitFor,
	}
}

// loadRod renders a page in a pooled tab.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard          – hard deadline on the entire operation
//  2. Acquire page           – borrow a tab from the pool (or create one)
//  3. DEFER: cleanup         – about:blank + return to pool
//  4. Stealth, headers, cookies, hijack – all before navigation
//  5. Navigate and wait      – DOM stable, then the wait_for selector
//  6. Capture                – HTML, title, final URL, status, sandboxing
//
// Step 3's about:blank uses the original page reference (without request
// context), so cleanup succeeds even if the request context has expired.
func (s *Scraper) loadRod(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// ── 2. Acquire page from pool ─────────────────────────────────────
	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, acquireErr := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", acquireErr)
	}

	// ── 3. Cleanup: blank the tab and return it to the pool ───────────
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	// ── 4a. Stealth injection ─────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 4b. Extra headers ─────────────────────────────────────────────
	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(req.Headers)}.Call(page)
	}

	// ── 4c. Cookies ───────────────────────────────────────────────────
	setCookies(page, req.URL, req.Cookies)

	// ── 4d. Resource blocking ─────────────────────────────────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockAds)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 5. Navigate and wait ──────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := settle(ctx, p, req.WaitFor, s.scraperCfg.WaitForTimeout); err != nil {
		return nil, err
	}

	// ── 6. Capture ────────────────────────────────────────────────────
	result, err := capture(p, req.URL)
	if err != nil {
		return nil, err
	}
	result.EngineName = EngineRod
	if req.Stealth {
		result.EngineName = EngineRodStealth
	}
	return result, nil
}

// loadWithCDP connects to a user-provided CDP endpoint, renders the page in
// a temporary tab, and disconnects without killing the browser. This is how
// pages behind the user's login (the database console) are reached.
func (s *Scraper) loadWithCDP(ctx context.Context, cdpURL string, req *engine.FetchRequest) (*engine.FetchResult, error) {
	browser := rod.New().ControlURL(cdpURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowserCrash, "failed to connect to CDP URL", err)
	}
	// Disconnect closes the WebSocket but does NOT kill the browser process.
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowserCrash, "failed to create page on CDP browser", err)
	}
	defer func() {
		_ = page.Close()
	}()

	setCookies(page, req.URL, req.Cookies)

	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := settle(ctx, p, req.WaitFor, s.scraperCfg.WaitForTimeout); err != nil {
		return nil, err
	}

	result, err := capture(p, req.URL)
	if err != nil {
		return nil, err
	}
	result.EngineName = EngineCDP
	return result, nil
}

// capture reads the rendered document. Only the HTML is required; the rest
// is best-effort.
func capture(p *rod.Page, requestURL string) (*engine.FetchResult, error) {
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = requestURL
	}

	// The status code comes from the navigation timing entry; CDP network
	// events conflict with request hijacking on recent Chromium.
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	return &engine.FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		FinalURL:   finalURL,
		// A CSP-sandboxed document without allow-same-origin has an
		// opaque origin. The response headers themselves are not visible
		// from the page.
		Sandboxed: evalStringOrEmpty(p, `() => String(self.origin)`) == "null",
	}, nil
}

func setCookies(page *rod.Page, pageURL string, cookies []http.Cookie) {
	for _, cookie := range cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, err := url.Parse(pageURL); err == nil {
				domain = u.Hostname()
			}
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   path,
		}.Call(page)
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ExtractErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ExtractError {
	var extractErr *models.ExtractError
	switch {
	case errors.As(err, &extractErr):
		return extractErr
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewExtractError(models.ErrCodeNavigation, msg, err)
	}
}
