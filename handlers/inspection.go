package handlers

import (
	"net/http"

	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// ScheduleInspection plans a site visit for a case
func (h *Handler) ScheduleInspection(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var input services.ScheduleInspectionInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	inspection, err := h.cases.ScheduleInspection(c.Request().Context(), actor, c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": inspection})
}

// ListInspections returns inspections filtered by inspector_id, case_id, status and date (YYYY-MM-DD)
func (h *Handler) ListInspections(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	filter := services.InspectionFilter{
		InspectorID: c.QueryParam("inspector_id"),
		CaseID:      c.QueryParam("case_id"),
		Status:      c.QueryParam("status"),
	}
	if raw := c.QueryParam("date"); raw != "" {
		date, err := services.ParseDate("date", raw)
		if err != nil {
			return err
		}
		filter.Date = &date
	}

	inspections, err := h.cases.ListInspections(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": inspections})
}

// StartInspection marks the visit as in progress
func (h *Handler) StartInspection(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	inspection, err := h.cases.StartInspection(c.Request().Context(), actor, c.Param("inspectionId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": inspection})
}

// AddObservation records a finding during the visit
func (h *Handler) AddObservation(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var input services.ObservationInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	observation, err := h.cases.AddObservation(c.Request().Context(), actor, c.Param("inspectionId"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": observation})
}

// FinalizeInspection closes the visit and moves the case
func (h *Handler) FinalizeInspection(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var input services.FinalizeInspectionInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	inspection, updated, err := h.cases.FinalizeInspection(c.Request().Context(), actor, c.Param("inspectionId"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": inspection, "case": updated})
}
