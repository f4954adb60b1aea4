package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jsonpick/cache"
	"github.com/use-agent/jsonpick/metrics"
	"github.com/use-agent/jsonpick/models"
	"github.com/use-agent/jsonpick/orchestrator"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Orchestrator.Extract → load page, ask its session for JSON.
//  4. Cache store, respond.
func Extract(o *orchestrator.Orchestrator, cc *cache.Cache, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ExtractRequest
		if !bindRequest(c, &req) {
			return
		}

		// ── 2. Cache lookup ────────────────────────────────────────
		useCache := cc != nil && cache.Cacheable(&req)
		cacheKey := ""
		if useCache {
			cacheKey = cache.Key(&req)
			cached, hit := cc.Get(cacheKey, req.MaxAge)
			m.RecordCache(hit)
			if hit {
				cached.CacheStatus = "hit"
				cached.EngineUsed = ""
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Extract ──────────────────────────────────────────────
		resp, err := o.Extract(c.Request.Context(), &req)
		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()
		if err != nil {
			status, detail := errorStatus(err)
			resp.Success = false
			resp.Error = detail
			c.JSON(status, resp)
			return
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if useCache {
			cc.Set(cacheKey, *resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}
