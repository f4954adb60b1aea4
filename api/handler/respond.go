package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jsonpick/models"
)

// bindRequest parses and validates the JSON body, applying defaults. On
// failure it writes a 400 and returns false.
func bindRequest(c *gin.Context, req *models.ExtractRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: err.Error(),
			},
		})
		return false
	}
	req.Defaults()
	return true
}

// errorStatus maps an error to the HTTP status and the API-facing detail.
func errorStatus(err error) (int, *models.ErrorDetail) {
	var extractErr *models.ExtractError
	if !errors.As(err, &extractErr) {
		extractErr = models.NewExtractError(models.ErrCodeInternal, err.Error(), err)
	}
	return mapErrorToStatus(extractErr), extractErr.ToDetail()
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ExtractError) int {
	switch e.Code {
	case models.ErrCodeTimeout, models.ErrCodeNoResponse:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeDocumentService:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNoJSON, models.ErrCodeStructure:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeSettings:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
