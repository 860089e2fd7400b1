package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"wayfarer/internal/domain/entity"
	"wayfarer/pkg/errors"
)

// In-memory repositories backing the realtime tests. They honor the same
// contracts as the Firestore adapters: NOT_FOUND app errors, soft-delete
// filtering, per-key unread counters.

type statusChange struct {
	userID string
	online bool
}

type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	changes []statusChange
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *memUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) SetOnlineStatus(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok {
		user.IsOnline = online
		user.LastSeen = lastSeen
	}
	r.changes = append(r.changes, statusChange{userID: userID, online: online})
	return nil
}

func (r *memUserRepo) statusChanges() []statusChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusChange(nil), r.changes...)
}

type memTripRepo struct {
	mu    sync.Mutex
	trips map[string]*entity.Trip
}

func newMemTripRepo(trips ...*entity.Trip) *memTripRepo {
	r := &memTripRepo{trips: make(map[string]*entity.Trip)}
	for _, t := range trips {
		r.trips[t.ID] = t
	}
	return r
}

func (r *memTripRepo) Create(ctx context.Context, trip *entity.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if trip.ID == "" {
		trip.ID = "trip" + strconv.Itoa(len(r.trips)+1)
	}
	r.trips[trip.ID] = trip
	return nil
}

func (r *memTripRepo) GetByID(ctx context.Context, id string) (*entity.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, errors.NotFound("Trip", nil)
	}
	return trip, nil
}

func (r *memTripRepo) Update(ctx context.Context, trip *entity.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[trip.ID] = trip
	return nil
}

func (r *memTripRepo) ListForUser(ctx context.Context, userID string) ([]*entity.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Trip
	for _, trip := range r.trips {
		if trip.IsOrganizer(userID) || trip.IsConfirmedParticipant(userID) {
			out = append(out, trip)
		}
	}
	return out, nil
}

func (r *memTripRepo) UpdateItinerary(ctx context.Context, tripID string, itinerary []entity.ItineraryDay, lastActivity time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok {
		return errors.NotFound("Trip", nil)
	}
	trip.Itinerary = itinerary
	trip.LastActivityAt = lastActivity
	return nil
}

type memChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message

	failCreateMessage error
}

func newMemChatRepo(chats ...*entity.Chat) *memChatRepo {
	r := &memChatRepo{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
	}
	for _, c := range chats {
		if c.UnreadCount == nil {
			c.UnreadCount = make(map[string]int64)
		}
		r.chats[c.ID] = c
	}
	return r
}

func (r *memChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat.ID == "" {
		chat.ID = "chat" + strconv.Itoa(len(r.chats)+1)
	}
	if chat.UnreadCount == nil {
		chat.UnreadCount = make(map[string]int64)
	}
	r.chats[chat.ID] = chat
	return nil
}

func (r *memChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *memChatRepo) Update(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = chat
	return nil
}

func (r *memChatRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Chat
	for _, chat := range r.chats {
		if chat.IsActive && chat.HasParticipant(userID) {
			out = append(out, chat)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memChatRepo) GetDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chat := range r.chats {
		if chat.ChatType == entity.ChatTypeDirect && chat.IsActive &&
			chat.HasParticipant(userA) && chat.HasParticipant(userB) {
			return chat, nil
		}
	}
	return nil, errors.NotFound("Chat", nil)
}

func (r *memChatRepo) GetTripChat(ctx context.Context, tripID string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chat := range r.chats {
		if chat.ChatType == entity.ChatTypeTrip && chat.TripID == tripID {
			return chat, nil
		}
	}
	return nil, errors.NotFound("Chat", nil)
}

func (r *memChatRepo) SetLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.LastMessage = last
	return nil
}

func (r *memChatRepo) IncrementUnread(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.UnreadCount[userID]++
	return nil
}

func (r *memChatRepo) ResetUnread(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.UnreadCount[userID] = 0
	return nil
}

func (r *memChatRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateMessage != nil {
		return r.failCreateMessage
	}
	if message.ID == "" {
		message.ID = "msg" + strconv.Itoa(len(r.messages[message.ChatID])+1)
	}
	r.messages[message.ChatID] = append(r.messages[message.ChatID], message)
	return nil
}

func (r *memChatRepo) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages[chatID] {
		if message.ID == messageID {
			return message, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *memChatRepo) UpdateMessage(ctx context.Context, chatID string, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.messages[chatID] {
		if existing.ID == message.ID {
			r.messages[chatID][i] = message
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

func (r *memChatRepo) AnswerQuestion(ctx context.Context, chatID string, answer *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var question *entity.Message
	for _, message := range r.messages[chatID] {
		if message.ID == answer.ReplyTo {
			question = message
			break
		}
	}
	if question == nil {
		return errors.NotFound("Message", nil)
	}
	if question.Type != entity.MessageTypeQuestion {
		return errors.BadRequest("This message is not a question", nil)
	}
	if question.Metadata.IsAnswered {
		return errors.Conflict("This question has already been answered", nil)
	}
	if answer.ID == "" {
		answer.ID = "msg" + strconv.Itoa(len(r.messages[chatID])+1)
	}
	r.messages[chatID] = append(r.messages[chatID], answer)
	question.Metadata.IsAnswered = true
	question.Metadata.AnsweredBy = answer.SenderID
	question.Metadata.AnsweredAt = answer.CreatedAt
	return nil
}

func (r *memChatRepo) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Newest first, mirroring the store's descending index.
	stored := r.messages[chatID]
	var out []*entity.Message
	for i := len(stored) - 1; i >= 0; i-- {
		if !stored[i].IsDeleted {
			out = append(out, stored[i])
		}
	}
	return out, int64(len(out)), nil
}

func (r *memChatRepo) ListQuestions(ctx context.Context, chatID string, answered *bool, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Message
	for _, message := range r.messages[chatID] {
		if message.IsDeleted || message.Type != entity.MessageTypeQuestion {
			continue
		}
		if answered != nil && message.Metadata.IsAnswered != *answered {
			continue
		}
		out = append(out, message)
	}
	return out, int64(len(out)), nil
}

func (r *memChatRepo) MarkMessagesRead(ctx context.Context, chatID, userID string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages[chatID] {
		if message.IsDeleted || message.SenderID == userID || message.ReadByUser(userID) {
			continue
		}
		message.ReadBy = append(message.ReadBy, entity.ReadReceipt{UserID: userID, ReadAt: readAt})
	}
	return nil
}

func (r *memChatRepo) storedMessages(chatID string) []*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Message(nil), r.messages[chatID]...)
}

// fakeVerifier resolves tokens from a fixed table.
type fakeVerifier map[string]string

func (v fakeVerifier) Verify(ctx context.Context, token string) (string, error) {
	userID, ok := v[token]
	if !ok {
		return "", errors.Unauthorized("Invalid or expired token", nil)
	}
	return userID, nil
}

// fakeConn satisfies Conn without a network; reads block until frames are
// pushed or the conn is closed.
type fakeConn struct {
	inbound chan []byte
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame, ok := <-c.inbound:
		if !ok {
			return 0, nil, errors.Internal("connection closed", nil)
		}
		return 1, frame, nil
	case <-c.closed:
		return 0, nil, errors.Internal("connection closed", nil)
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// receivedEvent is the decoded shape of an outbound frame.
type receivedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drainEvents decodes every frame currently queued on the client.
func drainEvents(c *Client) []receivedEvent {
	var out []receivedEvent
	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				return out
			}
			var evt receivedEvent
			if err := json.Unmarshal(payload, &evt); err == nil {
				out = append(out, evt)
			}
		default:
			return out
		}
	}
}

func mustFrame(event string, payload interface{}) []byte {
	data, _ := json.Marshal(payload)
	frame, _ := json.Marshal(ClientEvent{Event: event, Data: data})
	return frame
}
