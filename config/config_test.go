package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Scraper.DefaultTimeout)
	assert.True(t, cfg.Scraper.BlockAds)
	assert.Equal(t, []string{"Image", "Stylesheet", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, "jsonpick.yaml", cfg.Settings.Path)
	assert.True(t, cfg.Settings.InstallDefaults)
	assert.Equal(t, 10*time.Second, cfg.Messaging.ReplyTimeout)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, cfg.Engine.EscalationDelays)
	assert.Empty(t, cfg.Log.File)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JSONPICK_PORT", "9090")
	t.Setenv("JSONPICK_BLOCK_ADS", "false")
	t.Setenv("JSONPICK_API_KEYS", " a, ,b ")
	t.Setenv("JSONPICK_REPLY_TIMEOUT", "250ms")
	t.Setenv("JSONPICK_WEBHOOK_RETRY_DELAYS", "0s,3s")
	t.Setenv("JSONPICK_RATE_RPS", "2.5")
	t.Setenv("JSONPICK_LOG_FILE", "/var/log/jsonpick.log")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Scraper.BlockAds)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	assert.Equal(t, 250*time.Millisecond, cfg.Messaging.ReplyTimeout)
	assert.Equal(t, []time.Duration{0, 3 * time.Second}, cfg.Webhook.RetryDelays)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "/var/log/jsonpick.log", cfg.Log.File)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JSONPICK_PORT", "eighty")
	t.Setenv("JSONPICK_HEADLESS", "maybe")
	t.Setenv("JSONPICK_ESCALATION_DELAYS", "soon, later")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, cfg.Engine.EscalationDelays)
}
