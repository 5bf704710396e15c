package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rollcallhq/rollcall/internal/directory"
)

// MembersHandler exposes the membership directory with link status.
type MembersHandler struct {
	service *directory.Service
	logger  *slog.Logger
}

// NewMembersHandler creates the handler.
func NewMembersHandler(log *slog.Logger, service *directory.Service) *MembersHandler {
	return &MembersHandler{
		service: service,
		logger:  log.With(slog.String("handler", "members")),
	}
}

// Register registers the routes.
func (h *MembersHandler) Register(e *echo.Echo) {
	group := e.Group("/api/members")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id/link", h.Unlink)
}

// List returns the member directory snapshot.
func (h *MembersHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []directory.Member{}
	}
	return c.JSON(http.StatusOK, items)
}

// Create adds an unlinked member.
func (h *MembersHandler) Create(c echo.Context) error {
	var req directory.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Handle == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "handle is required")
	}
	member, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, member)
}

// Unlink clears a member's platform identity link for manual corrections.
func (h *MembersHandler) Unlink(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	if err := h.service.Unlink(c.Request().Context(), id); err != nil {
		if errors.Is(err, directory.ErrMemberNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
