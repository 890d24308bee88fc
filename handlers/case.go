package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"permit_flow_app_go/models"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// CreateCase registers a case. It accepts a JSON body, or a multipart form whose
// "case" field holds the JSON and whose file fields are named after document slots.
func (h *Handler) CreateCase(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var input services.CreateCaseInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
		}
		if err := json.Unmarshal([]byte(c.FormValue("case")), &input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "field \"case\" must hold the case as JSON")
		}
		input.Documents = make(map[models.DocumentSlot]*services.FileUpload, len(form.File))
		for field, headers := range form.File {
			if len(headers) == 0 {
				continue
			}
			f, err := services.ReadFileHeader(headers[0], h.maxUpload)
			if err != nil {
				return err
			}
			input.Documents[models.DocumentSlot(field)] = f
		}
	} else if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := h.cases.CreateCase(c.Request().Context(), actor, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": created})
}

// ListCases returns the cases visible to the caller with pagination metadata
func (h *Handler) ListCases(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	result, err := h.cases.ListCases(c.Request().Context(), actor, services.CaseFilter{
		State:  c.QueryParam("state"),
		Search: c.QueryParam("q"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": result.Cases,
		"pagination": map[string]interface{}{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// GetCase returns a case with its documents, ledger, completeness and the actions open to the caller
func (h *Handler) GetCase(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	found, err := h.cases.GetCase(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":              found,
		"completeness":      services.CheckCompleteness(found),
		"available_actions": services.AvailableActions(actor, found),
	})
}

// GetHistory returns the ledger of a case
func (h *Handler) GetHistory(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	history, err := h.cases.GetHistory(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": history})
}

type transitionRequest struct {
	Detail string `json:"detail"`
}

// Transition applies a state machine action named in the path
func (h *Handler) Transition(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.cases.Transition(c.Request().Context(), actor, c.Param("id"), services.Action(c.Param("action")), req.Detail)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}

// SendMessage emails the applicant and records the message on the ledger
func (h *Handler) SendMessage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var input services.MessageInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.cases.SendMessage(c.Request().Context(), actor, c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}

// Statistics returns the management report figures
func (h *Handler) Statistics(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	stats, err := h.cases.Statistics(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": stats})
}
