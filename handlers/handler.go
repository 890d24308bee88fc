package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"permit_flow_app_go/middleware"
	"permit_flow_app_go/models"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Handler exposes the case engine over JSON
type Handler struct {
	cases        *services.CaseService
	verification *services.VerificationService
	db           *gorm.DB
	maxUpload    int64
}

// New creates the HTTP handlers. verification may be nil, which disables the code endpoints.
func New(cases *services.CaseService, verification *services.VerificationService, database *gorm.DB, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = services.MaxUploadSize
	}
	return &Handler{
		cases:        cases,
		verification: verification,
		db:           database,
		maxUpload:    maxUpload,
	}
}

func currentActor(c echo.Context) (models.Actor, error) {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return actor, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// formFile buffers the named multipart file, enforcing the upload cap
func (h *Handler) formFile(c echo.Context, field string) (*services.FileUpload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, services.ValidationError("file %q is required", field)
	}
	return services.ReadFileHeader(fileHeader, h.maxUpload)
}

// streamFile sends a stored file as a download and closes the reader
func streamFile(c echo.Context, reader io.ReadCloser, filename, contentType string) error {
	defer reader.Close()
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Stream(http.StatusOK, contentType, reader)
}
