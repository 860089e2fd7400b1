package repository

import (
	"context"
	"time"

	"wayfarer/internal/domain/entity"
)

type TripRepository interface {
	Create(ctx context.Context, trip *entity.Trip) error
	GetByID(ctx context.Context, id string) (*entity.Trip, error)
	Update(ctx context.Context, trip *entity.Trip) error

	// ListForUser returns trips where the user is the organizer or a
	// confirmed participant; these are the rooms a session auto-joins.
	ListForUser(ctx context.Context, userID string) ([]*entity.Trip, error)

	// UpdateItinerary replaces the whole itinerary document field.
	// Last writer wins; there is no version check.
	UpdateItinerary(ctx context.Context, tripID string, itinerary []entity.ItineraryDay, lastActivity time.Time) error
}
