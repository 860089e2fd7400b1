package realtime

import (
	"context"

	"wayfarer/internal/domain/repository"
	"wayfarer/pkg/errors"
)

// Actions a session can attempt against a room.
const (
	ActionJoin      = "join"
	ActionPost      = "post"
	ActionTyping    = "typing"
	ActionItinerary = "itinerary"
)

// Authorizer decides room membership per action. Authoritative membership
// lives in the persisted trip and chat documents, never in the registry, so
// every decision reads the current document.
type Authorizer struct {
	trips repository.TripRepository
	chats repository.ChatRepository
}

func NewAuthorizer(trips repository.TripRepository, chats repository.ChatRepository) *Authorizer {
	return &Authorizer{
		trips: trips,
		chats: chats,
	}
}

var errAccessDenied = errors.Forbidden("Access denied to this room", nil)

// Authorize returns nil when the user may perform the action in the room.
// Trip rooms: the organizer may do anything; confirmed participants may
// join, post, type, and edit the itinerary. Chat rooms: any participant,
// whatever their role.
func (a *Authorizer) Authorize(ctx context.Context, userID string, room RoomRef, action string) error {
	switch room.Kind {
	case RoomKindTrip:
		trip, err := a.trips.GetByID(ctx, room.ID)
		if err != nil {
			return err
		}
		if trip.IsOrganizer(userID) {
			return nil
		}
		if trip.IsConfirmedParticipant(userID) {
			switch action {
			case ActionJoin, ActionPost, ActionTyping, ActionItinerary:
				return nil
			}
		}
		return errAccessDenied

	case RoomKindChat:
		chat, err := a.chats.GetByID(ctx, room.ID)
		if err != nil {
			return err
		}
		if chat.IsActive && chat.HasParticipant(userID) {
			return nil
		}
		return errAccessDenied
	}

	return errors.BadRequest("Invalid room id", nil)
}
