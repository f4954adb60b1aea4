package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jsonpick/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// PoolStater reports browser page pool utilisation.
type PoolStater interface {
	Stats() models.PoolStats
}

// SessionCounter reports how many page sessions are open.
type SessionCounter interface {
	Len() int
}

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of pages are active.
// pool may be nil when no browser is running.
func Health(pool PoolStater, sessions SessionCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if pool != nil {
			stats = pool.Stats()
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		resp := models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   Version,
		}
		if sessions != nil {
			resp.Sessions = sessions.Len()
		}
		c.JSON(http.StatusOK, resp)
	}
}
