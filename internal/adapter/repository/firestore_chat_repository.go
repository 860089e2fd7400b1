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
	"wayfarer/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func participantIDs(chat *entity.Chat) []string {
	ids := make([]string, 0, len(chat.Participants))
	for i := range chat.Participants {
		ids = append(ids, chat.Participants[i].UserID)
	}
	return ids
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.ParticipantIDs = participantIDs(chat)
	if chat.UnreadCount == nil {
		chat.UnreadCount = make(map[string]int64)
	}

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	return &chat, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()
	chat.ParticipantIDs = participantIDs(chat)

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to update chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection("chats").
		Where("participantIds", "array-contains", userID).
		Where("isActive", "==", true).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}

	total := int64(len(allDocs))

	// Paginate in memory; a second count query costs more than it saves here.
	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var chats []*entity.Chat
	for i := start; i < end; i++ {
		var chat entity.Chat
		if err := allDocs[i].DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document for user %s: %v", userID, err)
			continue
		}
		chat.ID = allDocs[i].Ref.ID
		chats = append(chats, &chat)
	}

	return chats, total, nil
}

func (r *firestoreChatRepository) GetDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("chatType", "==", entity.ChatTypeDirect).
		Where("participantIds", "array-contains", userA)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query direct chats", err)
	}

	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			continue // Skip malformed documents
		}
		chat.ID = doc.Ref.ID
		if chat.IsActive && chat.HasParticipant(userB) {
			return &chat, nil
		}
	}

	return nil, errors.NotFound("Chat", nil)
}

func (r *firestoreChatRepository) GetTripChat(ctx context.Context, tripID string) (*entity.Chat, error) {
	iter := r.client.Collection("chats").
		Where("chatType", "==", entity.ChatTypeTrip).
		Where("tripId", "==", tripID).
		Limit(1).
		Documents(ctx)

	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to query trip chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	return &chat, nil
}

func (r *firestoreChatRepository) SetLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error {
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: last},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to update last message", err)
	}

	return nil
}

func (r *firestoreChatRepository) IncrementUnread(ctx context.Context, chatID, userID string) error {
	// firestore.Increment keeps concurrent senders from racing a
	// read-modify-write on the counter map.
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "unreadCount." + userID, Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to increment unread count", err)
	}

	return nil
}

func (r *firestoreChatRepository) ResetUnread(ctx context.Context, chatID, userID string) error {
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "unreadCount." + userID, Value: 0},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to reset unread count", err)
	}

	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.client.Collection("chats").Doc(message.ChatID).Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	doc, err := r.client.Collection("chats").Doc(chatID).Collection("messages").Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.ID = doc.Ref.ID

	return &message, nil
}

func (r *firestoreChatRepository) UpdateMessage(ctx context.Context, chatID string, message *entity.Message) error {
	_, err := r.client.Collection("chats").Doc(chatID).Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to update message", err)
	}

	return nil
}

func (r *firestoreChatRepository) AnswerQuestion(ctx context.Context, chatID string, answer *entity.Message) error {
	if answer.ID == "" {
		answer.ID = uuid.New().String()
	}
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now()
	}

	messages := r.client.Collection("chats").Doc(chatID).Collection("messages")
	questionRef := messages.Doc(answer.ReplyTo)
	answerRef := messages.Doc(answer.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(questionRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return errors.Internal("Failed to get message", err)
		}

		var question entity.Message
		if err := doc.DataTo(&question); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if question.Type != entity.MessageTypeQuestion {
			return errors.BadRequest("This message is not a question", nil)
		}
		if question.Metadata.IsAnswered {
			return errors.Conflict("This question has already been answered", nil)
		}

		if err := tx.Set(answerRef, answer); err != nil {
			return errors.Internal("Failed to create message", err)
		}
		return tx.Update(questionRef, []firestore.Update{
			{Path: "metadata.isAnswered", Value: true},
			{Path: "metadata.answeredBy", Value: answer.SenderID},
			{Path: "metadata.answeredAt", Value: answer.CreatedAt},
		})
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.Internal("Failed to answer question", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").
		Where("isDeleted", "==", false).
		OrderBy("createdAt", firestore.Desc)

	return r.collectMessages(ctx, query, chatID, limit, offset)
}

func (r *firestoreChatRepository) ListQuestions(ctx context.Context, chatID string, answered *bool, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").
		Where("type", "==", entity.MessageTypeQuestion).
		Where("isDeleted", "==", false)
	if answered != nil {
		query = query.Where("metadata.isAnswered", "==", *answered)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	return r.collectMessages(ctx, query, chatID, limit, offset)
}

func (r *firestoreChatRepository) collectMessages(ctx context.Context, query firestore.Query, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching messages for chat %s: %v", chatID, err)
		return nil, 0, errors.Internal("Failed to fetch messages", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var messages []*entity.Message
	for i := start; i < end; i++ {
		var message entity.Message
		if err := allDocs[i].DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message document in chat %s: %v", chatID, err)
			continue
		}
		message.ID = allDocs[i].Ref.ID
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreChatRepository) MarkMessagesRead(ctx context.Context, chatID, userID string, readAt time.Time) error {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").
		Where("isDeleted", "==", false)

	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			continue
		}
		message.ID = doc.Ref.ID

		if message.SenderID == userID || message.ReadByUser(userID) {
			continue
		}

		message.ReadBy = append(message.ReadBy, entity.ReadReceipt{UserID: userID, ReadAt: readAt})
		if _, err := doc.Ref.Set(ctx, &message); err != nil {
			return errors.Internal("Failed to update message read status", err)
		}
	}

	return nil
}
