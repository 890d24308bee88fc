package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type verificationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RequestVerificationCode emails a one-time code to a prospective applicant
func (h *Handler) RequestVerificationCode(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusNotFound, "verification is disabled")
	}

	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.verification.Issue(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"status": "sent"})
}

// ConfirmVerificationCode checks a code previously sent to the email
func (h *Handler) ConfirmVerificationCode(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusNotFound, "verification is disabled")
	}

	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.verification.Confirm(c.Request().Context(), req.Email, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"verified": true})
}
