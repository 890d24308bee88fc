package handlers

import (
	"net/http"

	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// IssueLicence uploads the signed licence PDF as multipart "file"
func (h *Handler) IssueLicence(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var f *services.FileUpload
	if fileHeader, err := c.FormFile("file"); err == nil {
		if f, err = services.ReadFileHeader(fileHeader, h.maxUpload); err != nil {
			return err
		}
	}

	updated, err := h.cases.IssueLicence(c.Request().Context(), actor, c.Param("id"), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": updated})
}

// DownloadLicence streams the issued licence
func (h *Handler) DownloadLicence(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	reader, licence, err := h.cases.OpenLicence(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return streamFile(c, reader, licence.OriginalName, services.MimeTypePDF)
}
