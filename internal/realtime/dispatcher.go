package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wayfarer/internal/domain/entity"
	"wayfarer/internal/domain/repository"
	"wayfarer/internal/infrastructure/ratelimit"
	"wayfarer/pkg/errors"
	"wayfarer/pkg/logger"
)

// typingExpiry is the hint broadcast with typing indicators so clients clear
// a stuck "typing..." state if the matching stop event is lost.
const typingExpiry = 5 * time.Second

// Dispatcher routes inbound session events: decode, authorize, persist, then
// fan out. Every failure is converted to an error event delivered to the
// originating session only; nothing here can crash a connection or leak into
// other sessions.
type Dispatcher struct {
	registry *Registry
	auth     *Authorizer
	chats    repository.ChatRepository
	trips    repository.TripRepository
	limiter  *ratelimit.RateLimiter
}

func NewDispatcher(
	registry *Registry,
	auth *Authorizer,
	chats repository.ChatRepository,
	trips repository.TripRepository,
	limiter *ratelimit.RateLimiter,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		auth:     auth,
		chats:    chats,
		trips:    trips,
		limiter:  limiter,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, client *Client, raw []byte) {
	var evt ClientEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		client.SendEvent(EventError, ErrorPayload{Message: "Invalid message format"})
		return
	}

	var err error
	switch evt.Event {
	case EventJoinRoom:
		err = d.handleJoinRoom(ctx, client, evt.Data)
	case EventLeaveRoom:
		err = d.handleLeaveRoom(client, evt.Data)
	case EventSendMessage:
		err = d.handleSendMessage(ctx, client, evt.Data)
	case EventTyping:
		err = d.handleTyping(client, evt.Data)
	case EventUpdateItinerary:
		err = d.handleUpdateItinerary(ctx, client, evt.Data)
	case EventUpdateActivity:
		err = d.handleUpdateActivity(client, evt.Data)
	case EventMarkRead:
		err = d.handleMarkRead(ctx, client, evt.Data)
	case EventAnswerQuestion:
		err = d.handleAnswerQuestion(ctx, client, evt.Data)
	default:
		err = errors.BadRequest("Unknown event type", nil)
	}

	if err != nil {
		logger.Debug("Event %s from session %s failed: %v", evt.Event, client.SessionID, err)
		client.SendEvent(EventError, ErrorPayload{Message: errors.MessageOf(err)})
	}
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, client *Client, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid joinRoom payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}

	if err := d.auth.Authorize(ctx, client.UserID, room, ActionJoin); err != nil {
		// Lazy re-check: a stale subscription discovered on denial is
		// pruned here rather than proactively evicted.
		d.registry.Leave(client, room)
		return err
	}

	d.registry.Join(client, room)

	if room.Kind == RoomKindTrip {
		client.SendEvent(EventJoinedTrip, map[string]string{"tripId": room.ID})
	} else {
		client.SendEvent(EventJoinedChat, map[string]string{"chatId": room.ID})
	}
	return nil
}

func (d *Dispatcher) handleLeaveRoom(client *Client, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid leaveRoom payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}

	// Leaving is always permitted for a room the session is subscribed to.
	d.registry.Leave(client, room)

	if room.Kind == RoomKindTrip {
		client.SendEvent(EventLeftTrip, map[string]string{"tripId": room.ID})
	} else {
		client.SendEvent(EventLeftChat, map[string]string{"chatId": room.ID})
	}
	return nil
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid sendMessage payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}
	if room.Kind != RoomKindChat {
		return errors.BadRequest("Messages can only be sent to chat rooms", nil)
	}
	if !d.registry.IsJoined(client, room) {
		return errors.Forbidden("Join the room before sending messages", nil)
	}

	if allowed, _ := d.limiter.Allow(client.UserID, "send_message"); !allowed {
		return errors.TooManyRequests("Slow down, you are sending messages too quickly")
	}

	if err := d.auth.Authorize(ctx, client.UserID, room, ActionPost); err != nil {
		d.registry.Leave(client, room)
		return err
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		return errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(content) > entity.MaxMessageContentLength {
		return errors.BadRequest("Message cannot exceed 2000 characters", nil)
	}

	messageType := p.MessageType
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	switch messageType {
	case entity.MessageTypeText, entity.MessageTypeImage, entity.MessageTypeFile, entity.MessageTypeQuestion:
	default:
		return errors.BadRequest("Invalid message type", nil)
	}

	chat, err := d.chats.GetByID(ctx, room.ID)
	if err != nil {
		return err
	}

	message := &entity.Message{
		ChatID:    chat.ID,
		SenderID:  client.UserID,
		Content:   content,
		Type:      messageType,
		CreatedAt: time.Now(),
	}

	// Persist before broadcast: a change that failed to persist must never
	// reach other sessions.
	if err := d.chats.CreateMessage(ctx, message); err != nil {
		return err
	}
	if err := d.chats.SetLastMessage(ctx, chat.ID, &entity.LastMessage{
		Content:   message.Content,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
		Type:      message.Type,
	}); err != nil {
		return err
	}
	for _, participantID := range chat.OtherParticipantIDs(client.UserID) {
		if err := d.chats.IncrementUnread(ctx, chat.ID, participantID); err != nil {
			return err
		}
	}

	// The sender already holds the message it sent and is excluded from the
	// fan-out to avoid a duplicate.
	d.registry.Broadcast(room, EventNewMessage, NewMessagePayload{
		RoomID:  p.RoomID,
		Message: message,
	}, client)

	return nil
}

func (d *Dispatcher) handleTyping(client *Client, data json.RawMessage) error {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid typing payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}
	if !d.registry.IsJoined(client, room) {
		return errors.Forbidden("Join the room before sending typing events", nil)
	}

	// Last value wins; nothing persisted.
	d.registry.Broadcast(room, EventTypingStatus, TypingStatusPayload{
		RoomID:    p.RoomID,
		User:      entity.PublicInfo{ID: client.UserID, Name: client.UserName},
		IsTyping:  p.IsTyping,
		ExpiresAt: time.Now().Add(typingExpiry),
	}, client)

	return nil
}

func (d *Dispatcher) handleUpdateItinerary(ctx context.Context, client *Client, data json.RawMessage) error {
	var p UpdateItineraryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid updateItinerary payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}
	if room.Kind != RoomKindTrip {
		return errors.BadRequest("Itineraries belong to trip rooms", nil)
	}

	if err := d.auth.Authorize(ctx, client.UserID, room, ActionItinerary); err != nil {
		d.registry.Leave(client, room)
		return err
	}

	// Whole-document replace, last writer wins.
	now := time.Now()
	if err := d.trips.UpdateItinerary(ctx, room.ID, p.Itinerary, now); err != nil {
		return err
	}

	if p.ChangeInfo != nil {
		d.recordItineraryChange(ctx, room.ID, client, p.ChangeInfo)
	}

	d.registry.Broadcast(room, EventItineraryUpdated, ItineraryUpdatedPayload{
		RoomID:     p.RoomID,
		Itinerary:  p.Itinerary,
		UpdatedBy:  entity.PublicInfo{ID: client.UserID, Name: client.UserName},
		ChangeInfo: p.ChangeInfo,
	}, client)

	return nil
}

// recordItineraryChange appends a system message to the trip's discussion
// chat. The itinerary write already succeeded, so failures here are logged
// and swallowed.
func (d *Dispatcher) recordItineraryChange(ctx context.Context, tripID string, client *Client, change *ChangeInfo) {
	chat, err := d.chats.GetTripChat(ctx, tripID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			logger.Warn("Failed to find discussion chat for trip %s: %v", tripID, err)
		}
		return
	}

	message := &entity.Message{
		ChatID:    chat.ID,
		SenderID:  client.UserID,
		Content:   fmt.Sprintf("%s %s %s", client.UserName, change.Action, change.Description),
		Type:      entity.MessageTypeSystem,
		CreatedAt: time.Now(),
	}
	if err := d.chats.CreateMessage(ctx, message); err != nil {
		logger.Warn("Failed to record itinerary change in chat %s: %v", chat.ID, err)
	}
}

func (d *Dispatcher) handleUpdateActivity(client *Client, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid updateActivity payload", err)
	}

	room, err := ParseRoomID(p.RoomID)
	if err != nil {
		return err
	}
	if !d.registry.IsJoined(client, room) {
		return errors.Forbidden("Join the room before sending activity updates", nil)
	}

	d.registry.Broadcast(room, EventUserActivity, UserActivityPayload{
		TripID:   room.ID,
		User:     entity.PublicInfo{ID: client.UserID, Name: client.UserName},
		LastSeen: time.Now(),
	}, client)

	return nil
}

func (d *Dispatcher) handleMarkRead(ctx context.Context, client *Client, data json.RawMessage) error {
	var p MarkReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid markRead payload", err)
	}

	chat, err := d.chats.GetByID(ctx, p.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(client.UserID) {
		return errAccessDenied
	}

	if err := d.chats.MarkMessagesRead(ctx, chat.ID, client.UserID, time.Now()); err != nil {
		return err
	}
	return d.chats.ResetUnread(ctx, chat.ID, client.UserID)
}

func (d *Dispatcher) handleAnswerQuestion(ctx context.Context, client *Client, data json.RawMessage) error {
	var p AnswerQuestionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.BadRequest("Invalid answerQuestion payload", err)
	}

	answer := strings.TrimSpace(p.Answer)
	if answer == "" {
		return errors.BadRequest("Answer is required", nil)
	}
	if utf8.RuneCountInString(answer) > entity.MaxMessageContentLength {
		return errors.BadRequest("Answer cannot exceed 2000 characters", nil)
	}

	chat, err := d.chats.GetByID(ctx, p.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(client.UserID) {
		return errAccessDenied
	}

	// The store flips the answered flag and writes the answer atomically, so
	// concurrent answers resolve to exactly one winner.
	answerMessage := &entity.Message{
		ChatID:    chat.ID,
		SenderID:  client.UserID,
		Content:   answer,
		Type:      entity.MessageTypeAnswer,
		ReplyTo:   p.MessageID,
		CreatedAt: time.Now(),
	}
	if err := d.chats.AnswerQuestion(ctx, chat.ID, answerMessage); err != nil {
		return err
	}

	d.registry.Broadcast(ChatRoom(chat.ID), EventNewMessage, NewMessagePayload{
		RoomID:  ChatRoom(chat.ID).String(),
		Message: answerMessage,
	}, client)

	return nil
}
