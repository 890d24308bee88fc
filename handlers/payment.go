package handlers

import (
	"net/http"
	"strings"

	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type assignAmountRequest struct {
	Amount float64 `json:"amount"`
}

// AssignAmount sets the fee of a case
func (h *Handler) AssignAmount(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req assignAmountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.cases.AssignAmount(c.Request().Context(), actor, c.Param("id"), req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}

// SubmitProof takes the voucher as multipart "file" plus operation_number and
// operation_date (YYYY-MM-DD)
func (h *Handler) SubmitProof(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	f, err := h.formFile(c, "file")
	if err != nil {
		return err
	}

	input := services.ProofInput{
		File:            f,
		OperationNumber: strings.TrimSpace(c.FormValue("operation_number")),
	}
	if raw := strings.TrimSpace(c.FormValue("operation_date")); raw != "" {
		date, err := services.ParseDate("operation_date", raw)
		if err != nil {
			return err
		}
		input.OperationDate = date
	}

	updated, err := h.cases.SubmitProof(c.Request().Context(), actor, c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}

// VerifyPayment confirms a paid fee
func (h *Handler) VerifyPayment(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	updated, err := h.cases.VerifyPayment(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}
