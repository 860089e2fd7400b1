package repository

import (
	"context"
	"time"

	"wayfarer/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error

	// SetOnlineStatus is the presence tracker's only write path.
	SetOnlineStatus(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}
