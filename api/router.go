// Package api wires the HTTP routes and middleware.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jsonpick/api/handler"
	"github.com/use-agent/jsonpick/api/middleware"
	"github.com/use-agent/jsonpick/cache"
	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/messaging"
	"github.com/use-agent/jsonpick/metrics"
	"github.com/use-agent/jsonpick/orchestrator"
)

// Deps are the collaborators the routes need. Cache and Pool may be nil.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Broker       *messaging.Broker
	Cache        *cache.Cache
	Metrics      *metrics.Metrics
	Limiters     *middleware.Limiters
	Pool         handler.PoolStater
	StartTime    time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLogger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics are outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.Middleware(d.Metrics))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Health is public.
	var sessions handler.SessionCounter
	if d.Broker != nil {
		sessions = d.Broker
	}
	v1.GET("/health", handler.Health(d.Pool, sessions, d.StartTime))

	// Protected group: auth and rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	limiters := d.Limiters
	if limiters == nil {
		limiters = middleware.NewLimiters(cfg.RateLimit)
	}
	protected.Use(middleware.RateLimit(limiters))

	protected.POST("/extract", handler.Extract(d.Orchestrator, d.Cache, d.Metrics))
	protected.POST("/documents", handler.Documents(d.Orchestrator))
	protected.POST("/auto", handler.Auto(d.Orchestrator))

	return r
}
