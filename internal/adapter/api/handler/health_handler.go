package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wayfarer/internal/realtime"
)

type HealthHandler struct {
	manager *realtime.Manager
}

func NewHealthHandler(manager *realtime.Manager) *HealthHandler {
	return &HealthHandler{
		manager: manager,
	}
}

func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.manager.SessionCount(),
	})
}
