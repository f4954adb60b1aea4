package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/jsonpick/models"
)

func TestErrorStatus(t *testing.T) {
	cases := map[string]int{
		models.ErrCodeTimeout:         http.StatusGatewayTimeout,
		models.ErrCodeNoResponse:      http.StatusGatewayTimeout,
		models.ErrCodeNavigation:      http.StatusBadGateway,
		models.ErrCodeDocumentService: http.StatusBadGateway,
		models.ErrCodeInvalidInput:    http.StatusBadRequest,
		models.ErrCodeNoJSON:          http.StatusUnprocessableEntity,
		models.ErrCodeStructure:       http.StatusUnprocessableEntity,
		models.ErrCodeSettings:        http.StatusServiceUnavailable,
		models.ErrCodeBrowserCrash:    http.StatusInternalServerError,
	}
	for code, want := range cases {
		status, detail := errorStatus(fmt.Errorf("wrapped: %w", models.NewExtractError(code, "m", nil)))
		assert.Equal(t, want, status, code)
		assert.Equal(t, code, detail.Code)
	}

	status, detail := errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, models.ErrCodeInternal, detail.Code)
	assert.Equal(t, "boom", detail.Message)
}
