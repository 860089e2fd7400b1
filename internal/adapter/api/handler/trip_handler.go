package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wayfarer/internal/usecase"
	"wayfarer/pkg/response"
)

type TripHandler struct {
	tripUseCase *usecase.TripUseCase
}

func NewTripHandler(tripUseCase *usecase.TripUseCase) *TripHandler {
	return &TripHandler{
		tripUseCase: tripUseCase,
	}
}

type confirmParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *TripHandler) CreateTrip(c echo.Context) error {
	var req usecase.CreateTripInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	trip, err := h.tripUseCase.CreateTrip(c.Request().Context(), userID, req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, trip)
}

func (h *TripHandler) GetTrip(c echo.Context) error {
	trip, err := h.tripUseCase.GetTrip(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trip)
}

// GetMyTrips lists trips where the user is the organizer or a confirmed
// participant.
func (h *TripHandler) GetMyTrips(c echo.Context) error {
	userID := c.Get("uid").(string)

	trips, err := h.tripUseCase.ListMyTrips(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trips)
}

func (h *TripHandler) JoinTrip(c echo.Context) error {
	tripID := c.Param("id")
	userID := c.Get("uid").(string)

	trip, err := h.tripUseCase.JoinTrip(c.Request().Context(), userID, tripID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trip)
}

func (h *TripHandler) LeaveTrip(c echo.Context) error {
	tripID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.tripUseCase.LeaveTrip(c.Request().Context(), userID, tripID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *TripHandler) ConfirmParticipant(c echo.Context) error {
	tripID := c.Param("id")
	organizerID := c.Get("uid").(string)

	var req confirmParticipantRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	trip, err := h.tripUseCase.ConfirmParticipant(c.Request().Context(), organizerID, tripID, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trip)
}

func (h *TripHandler) ApproveTrip(c echo.Context) error {
	tripID := c.Param("id")
	adminID := c.Get("uid").(string)

	trip, err := h.tripUseCase.ApproveTrip(c.Request().Context(), adminID, tripID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trip)
}

func (h *TripHandler) RejectTrip(c echo.Context) error {
	tripID := c.Param("id")
	adminID := c.Get("uid").(string)

	trip, err := h.tripUseCase.RejectTrip(c.Request().Context(), adminID, tripID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, trip)
}
