package handlers

import (
	"net/http"

	"permit_flow_app_go/models"

	"github.com/labstack/echo/v4"
)

// AttachDocument stores the multipart "file" in the slot named in the path
func (h *Handler) AttachDocument(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	f, err := h.formFile(c, "file")
	if err != nil {
		return err
	}

	doc, err := h.cases.AttachDocument(c.Request().Context(), actor, c.Param("id"), models.DocumentSlot(c.Param("slot")), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": doc})
}

// DownloadDocument streams the file held in a slot
func (h *Handler) DownloadDocument(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	reader, doc, err := h.cases.OpenDocument(c.Request().Context(), actor, c.Param("id"), models.DocumentSlot(c.Param("slot")))
	if err != nil {
		return err
	}
	return streamFile(c, reader, doc.OriginalName, doc.ContentType)
}

// CheckDocuments returns the completeness report of a case
func (h *Handler) CheckDocuments(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	report, err := h.cases.CheckDocuments(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": report})
}
