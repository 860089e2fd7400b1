package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"wayfarer/internal/domain/entity"
	"wayfarer/pkg/errors"
)

func testTrip() *entity.Trip {
	return &entity.Trip{
		ID:        "t1",
		Organizer: "organizer",
		Status:    entity.TripStatusApproved,
		Participants: []entity.TripParticipant{
			{UserID: "confirmed", Status: entity.ParticipantConfirmed},
			{UserID: "pending", Status: entity.ParticipantPending},
			{UserID: "cancelled", Status: entity.ParticipantCancelled},
		},
	}
}

func TestAuthorizeTripRoom(t *testing.T) {
	auth := NewAuthorizer(newMemTripRepo(testTrip()), newMemChatRepo())
	ctx := context.Background()
	room := TripRoom("t1")

	for _, action := range []string{ActionJoin, ActionPost, ActionTyping, ActionItinerary} {
		assert.NoError(t, auth.Authorize(ctx, "organizer", room, action), action)
		assert.NoError(t, auth.Authorize(ctx, "confirmed", room, action), action)
	}

	// Pending and cancelled participants hold no entitlements yet.
	for _, userID := range []string{"pending", "cancelled", "stranger"} {
		err := auth.Authorize(ctx, userID, room, ActionJoin)
		assert.True(t, errors.Is(err, "FORBIDDEN"), userID)
	}
}

func TestAuthorizeChatRoom(t *testing.T) {
	chats := newMemChatRepo(
		&entity.Chat{
			ID:       "c1",
			ChatType: entity.ChatTypeDirect,
			IsActive: true,
			Participants: []entity.ChatParticipant{
				{UserID: "u1"}, {UserID: "u2"},
			},
		},
		&entity.Chat{
			ID:       "c2",
			ChatType: entity.ChatTypeDirect,
			IsActive: false,
			Participants: []entity.ChatParticipant{
				{UserID: "u1"}, {UserID: "u2"},
			},
		},
	)
	auth := NewAuthorizer(newMemTripRepo(), chats)
	ctx := context.Background()

	assert.NoError(t, auth.Authorize(ctx, "u1", ChatRoom("c1"), ActionPost))
	assert.NoError(t, auth.Authorize(ctx, "u2", ChatRoom("c1"), ActionJoin))

	err := auth.Authorize(ctx, "u3", ChatRoom("c1"), ActionJoin)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// A deactivated chat admits nobody, participants included.
	err = auth.Authorize(ctx, "u1", ChatRoom("c2"), ActionJoin)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestAuthorizeMissingRoom(t *testing.T) {
	auth := NewAuthorizer(newMemTripRepo(), newMemChatRepo())
	ctx := context.Background()

	err := auth.Authorize(ctx, "u1", TripRoom("missing"), ActionJoin)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	err = auth.Authorize(ctx, "u1", ChatRoom("missing"), ActionJoin)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}
