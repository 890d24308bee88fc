package handlers

import (
	"net/http"

	"permit_flow_app_go/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API on e. Everything under /api except the
// verification endpoints requires a bearer token signed with jwtSecret.
func RegisterRoutes(e *echo.Echo, h *Handler, jwtSecret string) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	public := e.Group("/api/verification-codes")
	public.POST("", h.RequestVerificationCode, middleware.VerificationIssueRateLimiter.Middleware())
	public.POST("/confirm", h.ConfirmVerificationCode, middleware.VerificationConfirmRateLimiter.Middleware())

	api := e.Group("/api", middleware.RequireAuth(jwtSecret))

	api.POST("/cases", h.CreateCase)
	api.GET("/cases", h.ListCases)
	api.GET("/cases/:id", h.GetCase)
	api.GET("/cases/:id/history", h.GetHistory)
	api.POST("/cases/:id/transitions/:action", h.Transition)
	api.POST("/cases/:id/messages", h.SendMessage)

	api.GET("/cases/:id/documents", h.CheckDocuments)
	api.POST("/cases/:id/documents/:slot", h.AttachDocument)
	api.GET("/cases/:id/documents/:slot", h.DownloadDocument)

	api.POST("/cases/:id/payment/amount", h.AssignAmount)
	api.POST("/cases/:id/payment/proof", h.SubmitProof)
	api.POST("/cases/:id/payment/verify", h.VerifyPayment)

	api.POST("/cases/:id/licence", h.IssueLicence)
	api.GET("/cases/:id/licence", h.DownloadLicence)

	api.POST("/cases/:id/inspections", h.ScheduleInspection)
	api.GET("/inspections", h.ListInspections)
	api.POST("/inspections/:inspectionId/start", h.StartInspection)
	api.POST("/inspections/:inspectionId/observations", h.AddObservation)
	api.POST("/inspections/:inspectionId/finalize", h.FinalizeInspection)

	api.GET("/statistics", h.Statistics)
}

// Health reports whether the database answers
func (h *Handler) Health(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok"})
}
