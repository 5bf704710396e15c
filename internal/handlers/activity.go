package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rollcallhq/rollcall/internal/telemetry"
)

// ActivityHandler exposes persisted voice records and message counters.
type ActivityHandler struct {
	store  telemetry.Store
	logger *slog.Logger
}

// NewActivityHandler creates the handler.
func NewActivityHandler(log *slog.Logger, store telemetry.Store) *ActivityHandler {
	return &ActivityHandler{
		store:  store,
		logger: log.With(slog.String("handler", "activity")),
	}
}

// Register registers the routes.
func (h *ActivityHandler) Register(e *echo.Echo) {
	group := e.Group("/api/activity")
	group.GET("/voice/:identity_id", h.ListVoice)
	group.GET("/messages/:identity_id", h.ListMessages)
}

// ListVoice returns closed voice records for an identity, newest first.
func (h *ActivityHandler) ListVoice(c echo.Context) error {
	identityID := c.Param("identity_id")
	if identityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identity_id is required")
	}
	items, err := h.store.ListVoiceByIdentity(c.Request().Context(), identityID, queryLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []telemetry.VoiceRecord{}
	}
	return c.JSON(http.StatusOK, items)
}

// ListMessages returns daily message counters for an identity, newest first.
func (h *ActivityHandler) ListMessages(c echo.Context) error {
	identityID := c.Param("identity_id")
	if identityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identity_id is required")
	}
	items, err := h.store.ListMessageCounts(c.Request().Context(), identityID, queryLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []telemetry.MessageCount{}
	}
	return c.JSON(http.StatusOK, items)
}

func queryLimit(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
