package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordExtraction("", OutcomeEmpty)
	m.RecordExtraction("github", OutcomeFound)
	m.RecordDocument(nil)
	m.RecordDocument(errors.New("x"))
	m.RecordCache(true)
	m.RecordEngine("http")
	m.RecordEngine("")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveStage(StageLoad, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("none", OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("github", OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsCreated.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineWins.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExtraction("x", OutcomeFound)
		m.RecordDocument(nil)
		m.SessionOpened()
		m.ObserveStage(StageCreate, time.Second)
	})
}

func TestHandler_Exposition(t *testing.T) {
	m := New(nil)
	m.RecordCache(false)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `jsonpick_cache_lookups_total{result="miss"} 1`))
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
