package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Scraper    ScraperConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Log        LogConfig
	Engine     EngineConfig
	Settings   SettingsConfig
	Messaging  MessagingConfig
	DocService DocServiceConfig
	Webhook    WebhookConfig
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EnableMultiEngine toggles the multi-engine dispatcher.
	EnableMultiEngine bool // default: true

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration // default: 5s
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000

	// TTL is how long an entry may live regardless of max_age.
	TTL time.Duration // default: 1h
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls page loading.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s

	// WaitForTimeout bounds the wait for a wait_for selector.
	WaitForTimeout time.Duration // default: 10s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracker hosts.
	BlockAds bool // default: true
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// File, when set, sends logs to a rotated file instead of stdout.
	File       string
	MaxSizeMB  int  // default: 100
	MaxBackups int  // default: 5
	MaxAgeDays int  // default: 28
	Compress   bool // default: true
}

// SettingsConfig locates the user settings file.
type SettingsConfig struct {
	// Path is the YAML settings file. default: "jsonpick.yaml"
	Path string

	// InstallDefaults writes the install-time defaults when the file is
	// missing. default: true
	InstallDefaults bool
}

// MessagingConfig controls session message delivery.
type MessagingConfig struct {
	// ReplyTimeout bounds the wait for a session reply.
	ReplyTimeout time.Duration // default: 10s
}

// DocServiceConfig controls the document creation client.
type DocServiceConfig struct {
	Timeout time.Duration // default: 15s
}

// WebhookConfig controls document event delivery.
type WebhookConfig struct {
	Timeout time.Duration // default: 10s

	// RetryDelays is the wait before each delivery attempt.
	RetryDelays []time.Duration // default: [0s, 1s, 5s]
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("JSONPICK_HOST", "0.0.0.0"),
			Port: envIntOr("JSONPICK_PORT", 8080),
			Mode: envOr("JSONPICK_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("JSONPICK_HEADLESS", true),
			MaxPages:     envIntOr("JSONPICK_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("JSONPICK_PROXY"),
			NoSandbox:    envBoolOr("JSONPICK_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("JSONPICK_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("JSONPICK_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("JSONPICK_MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("JSONPICK_NAV_TIMEOUT", 15*time.Second),
			WaitForTimeout:    envDurationOr("JSONPICK_WAIT_FOR_TIMEOUT", 10*time.Second),
			BlockedResourceTypes: envSliceOr("JSONPICK_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			BlockAds: envBoolOr("JSONPICK_BLOCK_ADS", true),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("JSONPICK_AUTH_ENABLED", true),
			APIKeys: envSliceOr("JSONPICK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("JSONPICK_RATE_RPS", 5.0),
			Burst:             envIntOr("JSONPICK_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("JSONPICK_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("JSONPICK_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:      envOr("JSONPICK_LOG_LEVEL", "info"),
			Format:     envOr("JSONPICK_LOG_FORMAT", "json"),
			File:       os.Getenv("JSONPICK_LOG_FILE"),
			MaxSizeMB:  envIntOr("JSONPICK_LOG_MAX_SIZE_MB", 100),
			MaxBackups: envIntOr("JSONPICK_LOG_MAX_BACKUPS", 5),
			MaxAgeDays: envIntOr("JSONPICK_LOG_MAX_AGE_DAYS", 28),
			Compress:   envBoolOr("JSONPICK_LOG_COMPRESS", true),
		},
		Engine: EngineConfig{
			EnableMultiEngine: envBoolOr("JSONPICK_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("JSONPICK_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("JSONPICK_HTTP_TIMEOUT", 5*time.Second),
		},
		Settings: SettingsConfig{
			Path:            envOr("JSONPICK_SETTINGS_FILE", "jsonpick.yaml"),
			InstallDefaults: envBoolOr("JSONPICK_INSTALL_DEFAULTS", true),
		},
		Messaging: MessagingConfig{
			ReplyTimeout: envDurationOr("JSONPICK_REPLY_TIMEOUT", 10*time.Second),
		},
		DocService: DocServiceConfig{
			Timeout: envDurationOr("JSONPICK_DOCSERVICE_TIMEOUT", 15*time.Second),
		},
		Webhook: WebhookConfig{
			Timeout:     envDurationOr("JSONPICK_WEBHOOK_TIMEOUT", 10*time.Second),
			RetryDelays: envDurationSliceOr("JSONPICK_WEBHOOK_RETRY_DELAYS", []time.Duration{0, time.Second, 5 * time.Second}),
		},
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
