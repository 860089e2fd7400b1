package router

import (
	"github.com/labstack/echo/v4"

	"wayfarer/internal/adapter/api/handler"
	"wayfarer/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
	chatHandler *handler.ChatHandler,
	tripHandler *handler.TripHandler,
	wsHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
) {
	SetupHealthRouter(e, healthHandler)
	SetupChatRouter(e, chatHandler, authMiddleware)
	SetupTripRouter(e, tripHandler, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, wsHandler)
}
