package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"wayfarer/internal/domain/entity"
	"wayfarer/pkg/errors"
)

// Inbound event names.
const (
	EventJoinRoom        = "joinRoom"
	EventLeaveRoom       = "leaveRoom"
	EventSendMessage     = "sendMessage"
	EventTyping          = "typing"
	EventUpdateItinerary = "updateItinerary"
	EventUpdateActivity  = "updateActivity"
	EventMarkRead        = "markRead"
	EventAnswerQuestion  = "answerQuestion"
)

// Outbound event names.
const (
	EventJoinedTrip       = "joinedTrip"
	EventLeftTrip         = "leftTrip"
	EventJoinedChat       = "joinedChat"
	EventLeftChat         = "leftChat"
	EventNewMessage       = "newMessage"
	EventTypingStatus     = "typingStatus"
	EventItineraryUpdated = "itineraryUpdated"
	EventUserJoined       = "userJoined"
	EventUserLeft         = "userLeft"
	EventUserOffline      = "userOffline"
	EventUserActivity     = "userActivity"
	EventTripCreated      = "tripCreated"
	EventError            = "error"
)

// ClientEvent is the inbound frame envelope.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the outbound frame envelope.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID      string `json:"roomId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type ChangeInfo struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

type UpdateItineraryPayload struct {
	RoomID     string                `json:"roomId"`
	Itinerary  []entity.ItineraryDay `json:"itinerary"`
	ChangeInfo *ChangeInfo           `json:"changeInfo,omitempty"`
}

type MarkReadPayload struct {
	ChatID string `json:"chatId"`
}

type AnswerQuestionPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Answer    string `json:"answer"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type TypingStatusPayload struct {
	RoomID    string            `json:"roomId"`
	User      entity.PublicInfo `json:"user"`
	IsTyping  bool              `json:"isTyping"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type NewMessagePayload struct {
	RoomID  string          `json:"roomId"`
	Message *entity.Message `json:"message"`
}

type ItineraryUpdatedPayload struct {
	RoomID     string                `json:"roomId"`
	Itinerary  []entity.ItineraryDay `json:"itinerary"`
	UpdatedBy  entity.PublicInfo     `json:"updatedBy"`
	ChangeInfo *ChangeInfo           `json:"changeInfo,omitempty"`
}

type UserEventPayload struct {
	TripID string            `json:"tripId"`
	User   entity.PublicInfo `json:"user"`
}

type UserActivityPayload struct {
	TripID   string            `json:"tripId"`
	User     entity.PublicInfo `json:"user"`
	LastSeen time.Time         `json:"lastSeen"`
}

type TripCreatedPayload struct {
	Trip      *entity.Trip      `json:"trip"`
	Organizer entity.PublicInfo `json:"organizer"`
}

// Room kinds.
const (
	RoomKindTrip = "trip"
	RoomKindChat = "chat"
)

// RoomRef identifies a fan-out room. Wire ids are "trip-<id>" and
// "chat-<id>".
type RoomRef struct {
	Kind string
	ID   string
}

func TripRoom(tripID string) RoomRef {
	return RoomRef{Kind: RoomKindTrip, ID: tripID}
}

func ChatRoom(chatID string) RoomRef {
	return RoomRef{Kind: RoomKindChat, ID: chatID}
}

func (r RoomRef) String() string {
	return r.Kind + "-" + r.ID
}

func ParseRoomID(roomID string) (RoomRef, error) {
	kind, id, ok := strings.Cut(roomID, "-")
	if !ok || id == "" || (kind != RoomKindTrip && kind != RoomKindChat) {
		return RoomRef{}, errors.BadRequest("Invalid room id", nil)
	}
	return RoomRef{Kind: kind, ID: id}, nil
}
