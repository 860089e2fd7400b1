package usecase

import (
	"context"
	"time"

	"wayfarer/internal/domain/entity"
	"wayfarer/internal/domain/repository"
	"wayfarer/internal/realtime"
	"wayfarer/pkg/errors"
	"wayfarer/pkg/logger"
)

type TripUseCase struct {
	tripRepo repository.TripRepository
	userRepo repository.UserRepository
	chatRepo repository.ChatRepository
	manager  *realtime.Manager
}

func NewTripUseCase(
	tripRepo repository.TripRepository,
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	manager *realtime.Manager,
) *TripUseCase {
	return &TripUseCase{
		tripRepo: tripRepo,
		userRepo: userRepo,
		chatRepo: chatRepo,
		manager:  manager,
	}
}

type CreateTripInput struct {
	Title           string    `json:"title" validate:"required,min=3,max=100"`
	Description     string    `json:"description" validate:"max=2000"`
	Destination     string    `json:"destination" validate:"required"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	MaxParticipants int       `json:"max_participants" validate:"required,min=1,max=100"`
}

// CreateTrip registers a pending trip and opens its discussion chat with the
// organizer as the only member. The trip stays invisible to join requests
// until an admin approves it.
func (uc *TripUseCase) CreateTrip(ctx context.Context, organizerID string, input CreateTripInput) (*entity.Trip, error) {
	if input.EndDate.Before(input.StartDate) {
		return nil, errors.BadRequest("End date cannot be before start date", nil)
	}

	organizer, err := uc.userRepo.GetByID(ctx, organizerID)
	if err != nil {
		return nil, err
	}

	trip := &entity.Trip{
		Title:           input.Title,
		Description:     input.Description,
		Destination:     input.Destination,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		MaxParticipants: input.MaxParticipants,
		Status:          entity.TripStatusPending,
		Organizer:       organizer.ID,
	}

	if err := uc.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	now := time.Now()
	discussion := &entity.Chat{
		ChatType: entity.ChatTypeTrip,
		Title:    trip.Title,
		TripID:   trip.ID,
		Participants: []entity.ChatParticipant{
			{UserID: organizer.ID, Role: roleOrDefault(organizer.Role), JoinedAt: now, LastSeen: now},
		},
		IsActive:    true,
		UnreadCount: make(map[string]int64),
	}
	if err := uc.chatRepo.Create(ctx, discussion); err != nil {
		// The trip exists without its discussion; surface the failure rather
		// than leave the caller thinking everything is wired.
		return nil, err
	}

	logger.Info("Trip %s created by %s, pending approval", trip.ID, organizer.ID)
	return trip, nil
}

func (uc *TripUseCase) GetTrip(ctx context.Context, tripID string) (*entity.Trip, error) {
	return uc.tripRepo.GetByID(ctx, tripID)
}

func (uc *TripUseCase) ListMyTrips(ctx context.Context, userID string) ([]*entity.Trip, error) {
	return uc.tripRepo.ListForUser(ctx, userID)
}

// ApproveTrip flips a pending trip to approved and announces it to every
// connected session. Admin only.
func (uc *TripUseCase) ApproveTrip(ctx context.Context, adminID, tripID string) (*entity.Trip, error) {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != entity.RoleAdmin {
		return nil, errors.Forbidden("Only admins can approve trips", nil)
	}

	trip, err := uc.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != entity.TripStatusPending {
		return nil, errors.Conflict("Trip is not pending approval", nil)
	}

	trip.Status = entity.TripStatusApproved
	if err := uc.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	organizer, err := uc.userRepo.GetByID(ctx, trip.Organizer)
	if err != nil {
		logger.Error("Failed to load organizer %s for approved trip %s: %v", trip.Organizer, trip.ID, err)
		return trip, nil
	}

	uc.manager.BroadcastGlobal(realtime.EventTripCreated, realtime.TripCreatedPayload{
		Trip:      trip,
		Organizer: organizer.Public(),
	})

	logger.Info("Trip %s approved by admin %s", trip.ID, adminID)
	return trip, nil
}

func (uc *TripUseCase) RejectTrip(ctx context.Context, adminID, tripID string) (*entity.Trip, error) {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != entity.RoleAdmin {
		return nil, errors.Forbidden("Only admins can reject trips", nil)
	}

	trip, err := uc.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != entity.TripStatusPending {
		return nil, errors.Conflict("Trip is not pending approval", nil)
	}

	trip.Status = entity.TripStatusRejected
	if err := uc.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	return trip, nil
}

// JoinTrip puts the user on the trip's participant list with pending status.
// Joining twice is a conflict, not a duplicate row; a cancelled participant
// who joins again goes back to pending.
func (uc *TripUseCase) JoinTrip(ctx context.Context, userID, tripID string) (*entity.Trip, error) {
	trip, err := uc.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != entity.TripStatusApproved {
		return nil, errors.BadRequest("Trip is not open for joining", nil)
	}
	if trip.IsOrganizer(userID) {
		return nil, errors.BadRequest("You are the organizer of this trip", nil)
	}
	if trip.ConfirmedCount() >= trip.MaxParticipants {
		return nil, errors.BadRequest("Trip is full", nil)
	}

	if existing := trip.FindParticipant(userID); existing != nil {
		if existing.Status != entity.ParticipantCancelled {
			return nil, errors.Conflict("You have already joined this trip", nil)
		}
		existing.Status = entity.ParticipantPending
		existing.JoinedAt = time.Now()
	} else {
		trip.Participants = append(trip.Participants, entity.TripParticipant{
			UserID:   userID,
			Status:   entity.ParticipantPending,
			JoinedAt: time.Now(),
		})
	}

	if err := uc.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	logger.Info("User %s requested to join trip %s", userID, tripID)
	return trip, nil
}

// LeaveTrip cancels the user's participation. The organizer cannot leave
// their own trip.
func (uc *TripUseCase) LeaveTrip(ctx context.Context, userID, tripID string) error {
	trip, err := uc.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.IsOrganizer(userID) {
		return errors.BadRequest("Organizers cannot leave their own trip", nil)
	}

	participant := trip.FindParticipant(userID)
	if participant == nil || participant.Status == entity.ParticipantCancelled {
		return errors.NotFound("Participant", nil)
	}

	wasConfirmed := participant.Status == entity.ParticipantConfirmed
	participant.Status = entity.ParticipantCancelled

	if err := uc.tripRepo.Update(ctx, trip); err != nil {
		return err
	}

	if wasConfirmed {
		uc.removeFromDiscussion(ctx, trip.ID, userID)

		user, err := uc.userRepo.GetByID(ctx, userID)
		if err == nil {
			uc.manager.BroadcastToTrip(trip.ID, realtime.EventUserLeft, realtime.UserEventPayload{
				TripID: trip.ID,
				User:   user.Public(),
			})
		}
	}

	return nil
}

// ConfirmParticipant promotes a pending participant to confirmed, adds them
// to the trip's discussion chat, and tells the trip room. Organizer only.
func (uc *TripUseCase) ConfirmParticipant(ctx context.Context, organizerID, tripID, userID string) (*entity.Trip, error) {
	trip, err := uc.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsOrganizer(organizerID) {
		return nil, errors.Forbidden("Only the organizer can confirm participants", nil)
	}

	participant := trip.FindParticipant(userID)
	if participant == nil {
		return nil, errors.NotFound("Participant", nil)
	}
	if participant.Status == entity.ParticipantConfirmed {
		return nil, errors.Conflict("Participant is already confirmed", nil)
	}
	if trip.ConfirmedCount() >= trip.MaxParticipants {
		return nil, errors.BadRequest("Trip is full", nil)
	}

	participant.Status = entity.ParticipantConfirmed

	if err := uc.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error("Failed to load confirmed participant %s for trip %s: %v", userID, tripID, err)
		return trip, nil
	}

	uc.addToDiscussion(ctx, trip.ID, user)

	uc.manager.BroadcastToTrip(trip.ID, realtime.EventUserJoined, realtime.UserEventPayload{
		TripID: trip.ID,
		User:   user.Public(),
	})

	logger.Info("User %s confirmed for trip %s", userID, tripID)
	return trip, nil
}

// Discussion membership mirrors confirmed trip membership. Failures here are
// logged, not returned; the trip update already committed.
func (uc *TripUseCase) addToDiscussion(ctx context.Context, tripID string, user *entity.User) {
	chat, err := uc.chatRepo.GetTripChat(ctx, tripID)
	if err != nil {
		logger.Error("Failed to load discussion for trip %s: %v", tripID, err)
		return
	}
	if chat.HasParticipant(user.ID) {
		return
	}

	now := time.Now()
	chat.Participants = append(chat.Participants, entity.ChatParticipant{
		UserID:   user.ID,
		Role:     roleOrDefault(user.Role),
		JoinedAt: now,
		LastSeen: now,
	})
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		logger.Error("Failed to add user %s to discussion for trip %s: %v", user.ID, tripID, err)
	}
}

func (uc *TripUseCase) removeFromDiscussion(ctx context.Context, tripID, userID string) {
	chat, err := uc.chatRepo.GetTripChat(ctx, tripID)
	if err != nil {
		logger.Error("Failed to load discussion for trip %s: %v", tripID, err)
		return
	}

	kept := chat.Participants[:0]
	for i := range chat.Participants {
		if chat.Participants[i].UserID != userID {
			kept = append(kept, chat.Participants[i])
		}
	}
	if len(kept) == len(chat.Participants) {
		return
	}
	chat.Participants = kept

	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		logger.Error("Failed to remove user %s from discussion for trip %s: %v", userID, tripID, err)
	}
}
