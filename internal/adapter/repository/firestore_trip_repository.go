package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wayfarer/internal/domain/entity"
	"wayfarer/internal/domain/repository"
	"wayfarer/pkg/errors"
)

type firestoreTripRepository struct {
	client *firestore.Client
}

func NewFirestoreTripRepository(client *firestore.Client) repository.TripRepository {
	return &firestoreTripRepository{
		client: client,
	}
}

// memberIDs rebuilds the denormalized query field: organizer plus every
// confirmed participant.
func memberIDs(trip *entity.Trip) []string {
	ids := []string{trip.Organizer}
	for i := range trip.Participants {
		if trip.Participants[i].Status == entity.ParticipantConfirmed {
			ids = append(ids, trip.Participants[i].UserID)
		}
	}
	return ids
}

func (r *firestoreTripRepository) Create(ctx context.Context, trip *entity.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}

	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	trip.MemberIDs = memberIDs(trip)

	_, err := r.client.Collection("trips").Doc(trip.ID).Set(ctx, trip)
	if err != nil {
		return errors.Internal("Failed to create trip", err)
	}

	return nil
}

func (r *firestoreTripRepository) GetByID(ctx context.Context, id string) (*entity.Trip, error) {
	doc, err := r.client.Collection("trips").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Trip", err)
		}
		return nil, errors.Internal("Failed to get trip", err)
	}

	var trip entity.Trip
	if err := doc.DataTo(&trip); err != nil {
		return nil, errors.Internal("Failed to parse trip data", err)
	}
	trip.ID = doc.Ref.ID

	return &trip, nil
}

func (r *firestoreTripRepository) Update(ctx context.Context, trip *entity.Trip) error {
	trip.UpdatedAt = time.Now()
	trip.MemberIDs = memberIDs(trip)

	_, err := r.client.Collection("trips").Doc(trip.ID).Set(ctx, trip)
	if err != nil {
		return errors.Internal("Failed to update trip", err)
	}

	return nil
}

func (r *firestoreTripRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Trip, error) {
	query := r.client.Collection("trips").Where("memberIds", "array-contains", userID)

	iter := query.Documents(ctx)
	var trips []*entity.Trip

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate trips", err)
		}

		var trip entity.Trip
		if err := doc.DataTo(&trip); err != nil {
			continue // Skip malformed documents
		}
		trip.ID = doc.Ref.ID
		trips = append(trips, &trip)
	}

	return trips, nil
}

func (r *firestoreTripRepository) UpdateItinerary(ctx context.Context, tripID string, itinerary []entity.ItineraryDay, lastActivity time.Time) error {
	_, err := r.client.Collection("trips").Doc(tripID).Update(ctx, []firestore.Update{
		{Path: "itinerary", Value: itinerary},
		{Path: "lastActivityAt", Value: lastActivity},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Trip", err)
		}
		return errors.Internal("Failed to update itinerary", err)
	}

	return nil
}
