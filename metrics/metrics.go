// Package metrics holds the Prometheus collectors for the API and the
// extraction pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed by StageDuration.
const (
	StageLoad    = "load"
	StageExtract = "extract"
	StageCreate  = "create"
)

// Extraction outcomes.
const (
	OutcomeFound = "found"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	Extractions      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	DocumentsCreated *prometheus.CounterVec
	EngineWins       *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	SessionsActive   prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonpick_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsonpick_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),

		Extractions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonpick_extractions_total",
				Help: "Extractions by producing source and outcome",
			},
			[]string{"source", "outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsonpick_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		DocumentsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonpick_documents_created_total",
				Help: "Document-creation calls by result",
			},
			[]string{"status"},
		),
		EngineWins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonpick_engine_wins_total",
				Help: "Page loads by the engine that produced them",
			},
			[]string{"engine"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonpick_cache_lookups_total",
				Help: "Extraction cache lookups by result",
			},
			[]string{"result"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsonpick_sessions_active",
				Help: "Number of page sessions registered on the broker",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) RecordExtraction(source, outcome string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	m.Extractions.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordDocument(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DocumentsCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordEngine(engine string) {
	if m == nil || engine == "" {
		return
	}
	m.EngineWins.WithLabelValues(engine).Inc()
}

func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

// Middleware records count and latency of every request. The route
// template is used as the path label to bound cardinality.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
