package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"permit_flow_app_go/models"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Not found", services.NotFoundError("case %s not found", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"Forbidden", services.ForbiddenError("no"), http.StatusForbidden, "FORBIDDEN"},
		{"Invalid state", fmt.Errorf("wrap: %w", services.InvalidStateError("closed")), http.StatusConflict, "INVALID_STATE"},
		{"Validation", services.ValidationError("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Conflict", services.ConflictError("case-1"), http.StatusConflict, "CONFLICT"},
		{"Code mismatch", services.ErrCodeMismatch, http.StatusUnprocessableEntity, "CODE_REJECTED"},
		{"Too many attempts", services.ErrTooManyAttempts, http.StatusTooManyRequests, "CODE_REJECTED"},
		{"Echo error", echo.NewHTTPError(http.StatusUnauthorized, "authentication required"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"Unknown", errors.New("database is on fire"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestErrorHandlerMissingDocuments(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	ErrorHandler(services.MissingDocumentsError([]models.DocumentSlot{models.SlotSitePlan}), c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []models.DocumentSlot{models.SlotSitePlan}, body.Missing)
}

func TestErrorHandlerInternalMessageHidden(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(errors.New("dial tcp 10.0.0.5:5432: refused"), c)

	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
