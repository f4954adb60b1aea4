package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jsonpick/models"
	"github.com/use-agent/jsonpick/orchestrator"
)

type documentFlow func(ctx context.Context, req *models.ExtractRequest) (*models.DocumentResponse, error)

// Documents returns a handler for POST /api/v1/documents: extract the page
// and create a document from the chosen option.
func Documents(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return documentHandler(o.Open)
}

// Auto returns a handler for POST /api/v1/auto: the auto-mode path, which
// only acts on bare JSON pages when auto mode is on.
func Auto(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return documentHandler(o.Auto)
}

func documentHandler(run documentFlow) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ExtractRequest
		if !bindRequest(c, &req) {
			return
		}

		resp, err := run(c.Request.Context(), &req)
		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()
		if err != nil {
			status, detail := errorStatus(err)
			resp.Success = false
			resp.Error = detail
			c.JSON(status, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
