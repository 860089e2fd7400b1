package repository

import (
	"context"
	"time"

	"wayfarer/internal/domain/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	Update(ctx context.Context, chat *entity.Chat) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)

	// GetDirectChat finds the active direct chat between two users,
	// whatever the argument order.
	GetDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error)

	// GetTripChat finds the discussion chat attached to a trip.
	GetTripChat(ctx context.Context, tripID string) (*entity.Chat, error)

	SetLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error

	// Unread counters must be atomic per key; concurrent senders never
	// read-modify-write each other's increments.
	IncrementUnread(ctx context.Context, chatID, userID string) error
	ResetUnread(ctx context.Context, chatID, userID string) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	UpdateMessage(ctx context.Context, chatID string, message *entity.Message) error

	// AnswerQuestion atomically marks the question referenced by
	// answer.ReplyTo as answered and stores the answer message. Returns a
	// conflict when the question already took an answer, so concurrent
	// answers resolve to exactly one winner.
	AnswerQuestion(ctx context.Context, chatID string, answer *entity.Message) error

	// ListMessages excludes soft-deleted rows; deleted messages stay
	// fetchable through GetMessageByID.
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
	ListQuestions(ctx context.Context, chatID string, answered *bool, limit, offset int) ([]*entity.Message, int64, error)

	// MarkMessagesRead appends a read receipt to every message in the chat
	// the user has not read and did not send.
	MarkMessagesRead(ctx context.Context, chatID, userID string, readAt time.Time) error
}
