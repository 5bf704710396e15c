package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rollcallhq/rollcall/internal/reconcile"
)

// ReconcileHandler exposes on-demand reconciliation runs.
type ReconcileHandler struct {
	service *reconcile.Service
	logger  *slog.Logger
}

// NewReconcileHandler creates the handler.
func NewReconcileHandler(log *slog.Logger, service *reconcile.Service) *ReconcileHandler {
	return &ReconcileHandler{
		service: service,
		logger:  log.With(slog.String("handler", "reconcile")),
	}
}

// Register registers the routes.
func (h *ReconcileHandler) Register(e *echo.Echo) {
	e.POST("/api/reconcile", h.Run)
}

// Run executes one reconciliation batch and returns the report. A roster or
// directory fetch failure is a hard error, not an empty report.
func (h *ReconcileHandler) Run(c echo.Context) error {
	report, err := h.service.Run(c.Request().Context())
	if err != nil {
		h.logger.Error("reconciliation run failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
