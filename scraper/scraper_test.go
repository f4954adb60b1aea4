package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/models"
)

func TestIsAdDomain(t *testing.T) {
	assert.True(t, isAdDomain("doubleclick.net"))
	assert.True(t, isAdDomain("pagead2.GoogleSyndication.com"))
	assert.False(t, isAdDomain("console.firebase.google.com"))
	assert.False(t, isAdDomain(""))
}

func TestResourceBlocker(t *testing.T) {
	b := newResourceBlocker([]string{"Image", "Script", "Bogus"}, true)
	assert.False(t, b.empty())
	assert.True(t, b.blocks(proto.NetworkResourceTypeImage, "https://example.com/a.png"))
	assert.False(t, b.blocks(proto.NetworkResourceTypeScript, "https://example.com/app.js"))
	assert.True(t, b.blocks(proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js"))

	assert.True(t, newResourceBlocker(nil, false).empty())
}

func TestFetchRequest(t *testing.T) {
	s := &Scraper{scraperCfg: config.ScraperConfig{DefaultTimeout: 30 * time.Second, MaxTimeout: 60 * time.Second}}

	req := &models.ExtractRequest{
		URL:     "https://example.com",
		Timeout: 120,
		WaitFor: ".f7e-field-list",
		Cookies: []models.Cookie{{Name: "sid", Value: "1"}},
	}
	fr := s.fetchRequest(req)
	assert.Equal(t, 60*time.Second, fr.Timeout)
	assert.Equal(t, ".f7e-field-list", fr.WaitFor)
	require.Len(t, fr.Cookies, 1)
	assert.Equal(t, "sid", fr.Cookies[0].Name)

	fr = s.fetchRequest(&models.ExtractRequest{URL: "https://example.com"})
	assert.Equal(t, 30*time.Second, fr.Timeout)
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, models.ErrCodeNavigation, categorizeError(errors.New("net::ERR"), "x").Code)

	inner := models.NewExtractError(models.ErrCodeBrowserCrash, "gone", nil)
	assert.Same(t, inner, categorizeError(inner, "x"))
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"X-A": "1"})
	assert.Equal(t, "1", m["X-A"].Str())
}

func TestNewLauncher(t *testing.T) {
	l := newLauncher(config.BrowserConfig{
		Headless:     true,
		NoSandbox:    true,
		DefaultProxy: "http://proxy.local:3128",
	})

	assert.Equal(t, "AutomationControlled", l.Get(flags.Flag("disable-blink-features")))
	assert.False(t, l.Has(flags.Flag("enable-automation")))
	assert.True(t, l.Has(flags.Flag("no-first-run")))
	assert.True(t, l.Has(flags.NoSandbox))
	assert.Equal(t, "http://proxy.local:3128", l.Get(flags.ProxyServer))
}
