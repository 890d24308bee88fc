package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Missing []models.DocumentSlot `json:"missing,omitempty"`
}

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindForbidden:    http.StatusForbidden,
	services.KindInvalidState: http.StatusConflict,
	services.KindValidation:   http.StatusBadRequest,
	services.KindConflict:     http.StatusConflict,
}

// ErrorHandler renders service and echo errors as ErrorResponse.
// Install it as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logging.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
		}).Error("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logging.Log.WithError(err).Error("Failed to write error response")
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status, ok := kindStatus[svcErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Code: string(svcErr.Kind), Message: svcErr.Message, Missing: svcErr.Missing}
	}

	switch {
	case errors.Is(err, services.ErrCodeIdentityEmpty):
		return http.StatusBadRequest, ErrorResponse{Code: string(services.KindValidation), Message: err.Error()}
	case errors.Is(err, services.ErrCodeNotFound), errors.Is(err, services.ErrCodeMismatch):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "CODE_REJECTED", Message: err.Error()}
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests, ErrorResponse{Code: "CODE_REJECTED", Message: err.Error()}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorResponse{Code: statusCode(he.Code), Message: fmt.Sprint(he.Message)}
	}

	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "internal server error"}
}

// statusCode turns an HTTP status into an upper snake case tag, e.g. TOO_MANY_REQUESTS
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
