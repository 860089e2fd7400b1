package router

import (
	"github.com/labstack/echo/v4"

	"wayfarer/internal/adapter/api/handler"
)

// SetupWebSocketRouter wires the realtime endpoint. Authentication happens
// inside the handler; the upgrade must complete before a rejection can be
// delivered.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
