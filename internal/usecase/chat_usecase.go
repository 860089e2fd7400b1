package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"wayfarer/internal/domain/entity"
	"wayfarer/internal/domain/repository"
	"wayfarer/internal/infrastructure/ratelimit"
	"wayfarer/internal/realtime"
	"wayfarer/pkg/errors"
	"wayfarer/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	manager     *realtime.Manager
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	manager *realtime.Manager,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		manager:     manager,
		rateLimiter: rateLimiter,
	}
}

type SendMessageInput struct {
	ChatID  string
	Content string
	Type    string
}

type ChatResponse struct {
	*entity.Chat
	OtherUser *entity.User `json:"other_user,omitempty"`
}

// CreateDirectChat returns the active direct chat between the two users,
// creating it on first request. Argument order never produces a second chat.
func (uc *ChatUseCase) CreateDirectChat(ctx context.Context, userID, participantID string) (*ChatResponse, error) {
	if allowed, _ := uc.rateLimiter.Allow(userID, "create_chat"); !allowed {
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another chat")
	}

	if participantID == "" {
		return nil, errors.BadRequest("Participant ID is required", nil)
	}
	if participantID == userID {
		return nil, errors.BadRequest("Cannot create chat with yourself", nil)
	}

	participant, err := uc.userRepo.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.chatRepo.GetDirectChat(ctx, userID, participantID)
	if err == nil {
		return &ChatResponse{Chat: existing, OtherUser: participant}, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	currentUser, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	chat := &entity.Chat{
		ID:       directChatID(userID, participantID),
		ChatType: entity.ChatTypeDirect,
		Participants: []entity.ChatParticipant{
			{UserID: userID, Role: roleOrDefault(currentUser.Role), JoinedAt: now, LastSeen: now},
			{UserID: participantID, Role: roleOrDefault(participant.Role), JoinedAt: now, LastSeen: now},
		},
		IsActive:    true,
		UnreadCount: make(map[string]int64),
	}

	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	logger.Info("Direct chat %s created between %s and %s", chat.ID, userID, participantID)
	return &ChatResponse{Chat: chat, OtherUser: participant}, nil
}

// directChatID derives the chat document id from the sorted user pair, so two
// racing first requests write the same document instead of creating two chats.
func directChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "direct_" + a + "_" + b
}

func roleOrDefault(role string) string {
	if role == "" {
		return entity.RoleTraveler
	}
	return role
}

func (uc *ChatUseCase) GetChat(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("Access denied to this chat", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) ListChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUser(ctx, userID, limit, offset)
}

// ListMessages returns the chat's messages in chronological order,
// soft-deleted rows excluded.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}
	if !chat.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("Access denied to this chat", nil)
	}

	messages, total, err := uc.chatRepo.ListMessages(ctx, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	// Store order is newest-first for pagination; clients want oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, total, nil
}

// SendMessage persists the message, moves the chat's lastMessage snapshot and
// unread counters, then fans out to the other participants' live sessions.
// The sender gets the message back in the return value, not over the socket.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	if allowed, _ := uc.rateLimiter.Allow(senderID, "send_message"); !allowed {
		return nil, errors.TooManyRequests("Slow down, you are sending messages too quickly")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(content) > entity.MaxMessageContentLength {
		return nil, errors.BadRequest("Message cannot exceed 2000 characters", nil)
	}

	messageType := input.Type
	if messageType == "" {
		messageType = entity.MessageTypeText
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, errors.Forbidden("Access denied to this chat", nil)
	}

	message := &entity.Message{
		ChatID:    chat.ID,
		SenderID:  senderID,
		Content:   content,
		Type:      messageType,
		CreatedAt: time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	if err := uc.chatRepo.SetLastMessage(ctx, chat.ID, &entity.LastMessage{
		Content:   message.Content,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
		Type:      message.Type,
	}); err != nil {
		return nil, err
	}
	for _, participantID := range chat.OtherParticipantIDs(senderID) {
		if err := uc.chatRepo.IncrementUnread(ctx, chat.ID, participantID); err != nil {
			return nil, err
		}
	}

	uc.manager.BroadcastToChat(chat.ID, realtime.EventNewMessage, realtime.NewMessagePayload{
		RoomID:  realtime.ChatRoom(chat.ID).String(),
		Message: message,
	}, senderID)

	return message, nil
}

// MarkAsRead appends read receipts for everything the user has not read in
// the chat and zeroes their unread counter.
func (uc *ChatUseCase) MarkAsRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("Access denied to this chat", nil)
	}

	if err := uc.chatRepo.MarkMessagesRead(ctx, chatID, userID, time.Now()); err != nil {
		return err
	}
	return uc.chatRepo.ResetUnread(ctx, chatID, userID)
}

// DeleteMessage soft-deletes; the row stays fetchable by id for audit but
// drops out of default listings.
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, userID, chatID, messageID string) error {
	message, err := uc.chatRepo.GetMessageByID(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return errors.Forbidden("Only the sender can delete this message", nil)
	}
	if message.IsDeleted {
		return nil
	}

	message.IsDeleted = true
	message.DeletedAt = time.Now()
	return uc.chatRepo.UpdateMessage(ctx, chatID, message)
}

func (uc *ChatUseCase) EditMessage(ctx context.Context, userID, chatID, messageID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(content) > entity.MaxMessageContentLength {
		return nil, errors.BadRequest("Message cannot exceed 2000 characters", nil)
	}

	message, err := uc.chatRepo.GetMessageByID(ctx, chatID, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can edit this message", nil)
	}
	if message.IsDeleted {
		return nil, errors.BadRequest("Cannot edit a deleted message", nil)
	}

	message.Content = content
	message.IsEdited = true
	message.EditedAt = time.Now()
	if err := uc.chatRepo.UpdateMessage(ctx, chatID, message); err != nil {
		return nil, err
	}

	return message, nil
}

func (uc *ChatUseCase) ListQuestions(ctx context.Context, userID, chatID string, answered *bool, limit, offset int) ([]*entity.Message, int64, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}
	if !chat.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("Access denied to this chat", nil)
	}

	return uc.chatRepo.ListQuestions(ctx, chatID, answered, limit, offset)
}

// AnswerQuestion creates an answer message referencing the question and
// flips the question's answered flag. A question takes exactly one answer;
// later calls fail with a conflict.
func (uc *ChatUseCase) AnswerQuestion(ctx context.Context, userID, chatID, messageID, answer string) (*entity.Message, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, errors.BadRequest("Answer is required", nil)
	}
	if utf8.RuneCountInString(answer) > entity.MaxMessageContentLength {
		return nil, errors.BadRequest("Answer cannot exceed 2000 characters", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("Access denied to this chat", nil)
	}

	// The store flips the answered flag and writes the answer atomically, so
	// concurrent answers resolve to exactly one winner.
	answerMessage := &entity.Message{
		ChatID:    chat.ID,
		SenderID:  userID,
		Content:   answer,
		Type:      entity.MessageTypeAnswer,
		ReplyTo:   messageID,
		CreatedAt: time.Now(),
	}
	if err := uc.chatRepo.AnswerQuestion(ctx, chat.ID, answerMessage); err != nil {
		return nil, err
	}

	uc.manager.BroadcastToChat(chat.ID, realtime.EventNewMessage, realtime.NewMessagePayload{
		RoomID:  realtime.ChatRoom(chat.ID).String(),
		Message: answerMessage,
	}, userID)

	return answerMessage, nil
}
