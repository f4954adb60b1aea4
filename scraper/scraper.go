// Package scraper owns the headless browser. It renders pages for the rod
// engines and attaches to user-provided Chrome instances over CDP.
package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/engine"
	"github.com/use-agent/jsonpick/models"
)

// Scraper holds one shared browser and a pool of reusable tabs. It is safe
// for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
	dispatcher  *engine.Dispatcher
	closeOnce   sync.Once
}

// NewScraper launches the browser and creates the tab pool.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	controlURL, err := newLauncher(browserCfg).Launch()
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)
	return &Scraper{
		browser:    browser,
		pagePool:   rod.NewPagePool(browserCfg.MaxPages),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}, nil
}

// newLauncher builds the Chrome command line. Automation markers are
// stripped so console pages that refuse automated browsers still render.
func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	for _, f := range []string{
		"disable-popup-blocking",
		"disable-renderer-backgrounding",
		"disable-background-timer-throttling",
		"disable-backgrounding-occluded-windows",
		"disable-component-update",
		"disable-default-apps",
		"disable-dev-shm-usage",
		"disable-extensions",
		"no-first-run",
	} {
		l.Set(flags.Flag(f))
	}
	return l
}

// SetDispatcher sets the multi-engine dispatcher used by Load for the
// "auto" and "http" fetch modes.
func (s *Scraper) SetDispatcher(d *engine.Dispatcher) {
	s.dispatcher = d
}

// Stats reports tab usage for the health endpoint.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Close drains the tab pool and shuts the browser down. Later calls are
// no-ops.
func (s *Scraper) Close() {
	s.closeOnce.Do(func() {
		s.pagePool.Cleanup(func(p *rod.Page) {
			_ = p.Close()
		})
		if err := s.browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		slog.Info("scraper shutdown complete")
	})
}
