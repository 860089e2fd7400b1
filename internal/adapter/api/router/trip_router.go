package router

import (
	"github.com/labstack/echo/v4"

	"wayfarer/internal/adapter/api/handler"
	"wayfarer/internal/adapter/api/middleware"
)

func SetupTripRouter(e *echo.Echo, tripHandler *handler.TripHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	tripGroup := e.Group("/v1/trips")
	tripGroup.Use(authMiddleware.Authenticate)

	tripGroup.POST("", tripHandler.CreateTrip)
	tripGroup.GET("/my", tripHandler.GetMyTrips)
	tripGroup.GET("/:id", tripHandler.GetTrip)

	// Membership
	tripGroup.POST("/:id/join", tripHandler.JoinTrip)
	tripGroup.POST("/:id/leave", tripHandler.LeaveTrip)
	tripGroup.POST("/:id/participants/confirm", tripHandler.ConfirmParticipant)

	// Moderation
	adminGroup := e.Group("/v1/admin/trips")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)
	adminGroup.POST("/:id/approve", tripHandler.ApproveTrip)
	adminGroup.POST("/:id/reject", tripHandler.RejectTrip)
}
