package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/api/middleware"
	"github.com/use-agent/jsonpick/cache"
	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/docservice"
	"github.com/use-agent/jsonpick/engine"
	"github.com/use-agent/jsonpick/messaging"
	"github.com/use-agent/jsonpick/metrics"
	"github.com/use-agent/jsonpick/models"
	"github.com/use-agent/jsonpick/orchestrator"
	"github.com/use-agent/jsonpick/settings"
)

const jsonPage = `<html><body><pre>{"ok": true}</pre></body></html>`

type stubPool struct{ stats models.PoolStats }

func (s stubPool) Stats() models.PoolStats { return s.stats }

func newTestRouter(t *testing.T, store settings.Store, mutate func(*config.Config)) (*gin.Engine, *cache.Cache) {
	t.Helper()
	return newLoadingRouter(t, store, nil, mutate)
}

func newLoadingRouter(t *testing.T, store settings.Store, loader orchestrator.Loader, mutate func(*config.Config)) (*gin.Engine, *cache.Cache) {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"k1"}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	if mutate != nil {
		mutate(cfg)
	}

	broker := messaging.NewBroker(time.Second)
	m := metrics.New(nil)
	cc := cache.New(10, time.Hour)
	limiters := middleware.NewLimiters(cfg.RateLimit)
	t.Cleanup(cc.Stop)
	t.Cleanup(limiters.Stop)

	o := orchestrator.New(orchestrator.Deps{
		Loader:    loader,
		Broker:    broker,
		Settings:  store,
		Documents: docservice.New(5 * time.Second),
		Metrics:   m,
	})
	r := NewRouter(cfg, Deps{
		Orchestrator: o,
		Broker:       broker,
		Cache:        cc,
		Metrics:      m,
		Limiters:     limiters,
		Pool:         stubPool{models.PoolStats{MaxPages: 10, ActivePages: 9}},
		StartTime:    time.Now(),
	})
	return r, cc
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "k1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuthAndDegraded(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 10, resp.PoolStats.MaxPages)
	assert.Zero(t, resp.Sessions)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestExtract_Endpoint(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	w := post(t, r, "/api/v1/extract", models.ExtractRequest{URL: "https://api.example.com/a", HTML: jsonPage})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "https://api.example.com/a", resp.Options[0].Title)
	assert.Equal(t, orchestrator.EngineProvided, resp.EngineUsed)
	assert.Empty(t, resp.CacheStatus)
}

func TestExtract_RequiresAPIKey(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExtract_InvalidBody(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	w := post(t, r, "/api/v1/extract", map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
}

func TestExtract_StructureViolationIs422(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	html := `<html><body><a class="crumb-link" href="/project/demo/firestore/data/users/ada">ada</a>` +
		`<div class="f7e-field-list"><fs-animate-changes></fs-animate-changes></div></body></html>`
	w := post(t, r, "/api/v1/extract", models.ExtractRequest{
		URL:  "https://console.firebase.google.com/project/demo/firestore/data/users/ada",
		HTML: html,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeStructure, resp.Error.Code)
}

func TestExtract_ReportsUndecodedConsoleFields(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	field := func(key, kind, text string) string {
		return `<fs-animate-changes><f7e-data-tree><div class="database-node type-` + kind + `">` +
			`<div class="database-key-value"><span class="database-key">` + key + `</span>` +
			`<span class="database-leaf-value">` + text + `</span></div></div></f7e-data-tree></fs-animate-changes>`
	}
	html := `<html><body><a class="crumb-link" href="/project/demo/firestore/data/users/ada">ada</a>` +
		`<div class="f7e-field-list">` + field("name", "string", `"Ada"`) + field("location", "geopoint", "[1° N, 2° E]") +
		`</div></body></html>`

	w := post(t, r, "/api/v1/extract", models.ExtractRequest{
		URL:  "https://console.firebase.google.com/project/demo/firestore/data/users/ada",
		HTML: html,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Options, 1)
	assert.Equal(t, map[string]any{"name": "Ada"}, resp.Options[0].JSON)
	assert.Equal(t, []string{"location"}, resp.Options[0].Unrecognized)
}

func TestExtract_CachedResponse(t *testing.T) {
	r, cc := newTestRouter(t, settings.Static{}, nil)

	cc.Set(cache.Key(&models.ExtractRequest{URL: "https://api.example.com/a"}), models.ExtractResponse{
		Success:   true,
		SourceURL: "https://api.example.com/a",
		Options:   []models.ExtractionResult{{Title: "cached", JSON: 1}},
	})

	// Caller-supplied HTML is never served from the cache.
	w := post(t, r, "/api/v1/extract", models.ExtractRequest{URL: "https://api.example.com/a", HTML: jsonPage, MaxAge: 60000})
	var fresh models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fresh))
	assert.Empty(t, fresh.CacheStatus)
	assert.Equal(t, "https://api.example.com/a", fresh.Options[0].Title)

	w = post(t, r, "/api/v1/extract", models.ExtractRequest{URL: "https://api.example.com/a", MaxAge: 60000})
	require.Equal(t, http.StatusOK, w.Code)
	var hit models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hit))
	assert.Equal(t, "hit", hit.CacheStatus)
	assert.Equal(t, "cached", hit.Options[0].Title)
}

// sessionLoader serves a private page to requests carrying a session
// cookie and a public one otherwise.
type sessionLoader struct{}

func (sessionLoader) Load(_ context.Context, req *models.ExtractRequest) (*engine.FetchResult, error) {
	body := `{"user":"guest"}`
	if len(req.Cookies) > 0 {
		body = `{"user":"ada","secret":"s3cr3t"}`
	}
	return &engine.FetchResult{
		HTML:       "<html><body><pre>" + body + "</pre></body></html>",
		FinalURL:   req.URL,
		EngineName: "http",
	}, nil
}

func TestExtract_CookieResponsesNeverShared(t *testing.T) {
	r, cc := newLoadingRouter(t, settings.Static{}, sessionLoader{}, nil)
	const page = "https://api.example.com/me"

	w := post(t, r, "/api/v1/extract", models.ExtractRequest{
		URL:     page,
		MaxAge:  60000,
		Cookies: []models.Cookie{{Name: "sid", Value: "ada"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var private models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &private))
	assert.Empty(t, private.CacheStatus)
	assert.Equal(t, 0, cc.Len())

	for _, want := range []string{"miss", "hit"} {
		w = post(t, r, "/api/v1/extract", models.ExtractRequest{URL: page, MaxAge: 60000})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp models.ExtractResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.CacheStatus)
		require.Len(t, resp.Options, 1)
		assert.Equal(t, map[string]any{"user": "guest"}, resp.Options[0].JSON)
	}
}

func TestDocuments_Endpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","location":"https://viewer.example.com/j/x"}`))
	}))
	defer srv.Close()

	r, _ := newTestRouter(t, settings.Static{ServerURL: srv.URL}, nil)

	w := post(t, r, "/api/v1/documents", models.ExtractRequest{URL: "https://api.example.com/a", HTML: jsonPage})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://viewer.example.com/j/x?theme=dark", resp.ViewerURL)
}

func TestAuto_NothingToDoIs422(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)

	w := post(t, r, "/api/v1/auto", models.ExtractRequest{URL: "https://api.example.com/a", HTML: jsonPage})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeNoJSON, resp.Error.Code)
}

func TestMetrics_Exposed(t *testing.T) {
	r, _ := newTestRouter(t, settings.Static{}, nil)
	post(t, r, "/api/v1/extract", models.ExtractRequest{URL: "https://api.example.com/a", HTML: jsonPage})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jsonpick_extractions_total")
}
