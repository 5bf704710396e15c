package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rollcallhq/rollcall/internal/version"
)

// PingHandler serves liveness and version info.
type PingHandler struct{}

// NewPingHandler creates the handler.
func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

// Register registers the routes.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
}

// Ping returns service liveness and version.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetInfo(),
	})
}
