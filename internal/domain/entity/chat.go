package entity

import "time"

const (
	ChatTypeDirect  = "direct"
	ChatTypeGroup   = "group"
	ChatTypeTrip    = "trip"
	ChatTypeSupport = "support"
)

type ChatParticipant struct {
	UserID   string    `json:"user" firestore:"userId"`
	Role     string    `json:"role" firestore:"role"`
	JoinedAt time.Time `json:"joined_at" firestore:"joinedAt"`
	LastSeen time.Time `json:"last_seen" firestore:"lastSeen"`
}

// LastMessage is a denormalized snapshot kept on the chat document so list
// views never fetch the messages subcollection.
type LastMessage struct {
	Content   string    `json:"content" firestore:"content"`
	SenderID  string    `json:"sender" firestore:"senderId"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
	Type      string    `json:"message_type" firestore:"messageType"`
}

type Chat struct {
	ID           string            `json:"id" firestore:"id"`
	ChatType     string            `json:"chat_type" firestore:"chatType"`
	Title        string            `json:"title,omitempty" firestore:"title,omitempty"`
	TripID       string            `json:"trip_id,omitempty" firestore:"tripId,omitempty"`
	Participants []ChatParticipant `json:"participants" firestore:"participants"`
	// ParticipantIDs mirrors Participants for array-contains queries.
	ParticipantIDs []string         `json:"-" firestore:"participantIds"`
	IsActive       bool             `json:"is_active" firestore:"isActive"`
	LastMessage    *LastMessage     `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount    map[string]int64 `json:"unread_count" firestore:"unreadCount"`
	CreatedAt      time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time        `json:"updated_at" firestore:"updatedAt"`
}

func (c *Chat) HasParticipant(userID string) bool {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return true
		}
	}
	return false
}

// OtherParticipantIDs returns every participant except the given user, the
// set whose unread counters move on a send.
func (c *Chat) OtherParticipantIDs(userID string) []string {
	var ids []string
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			ids = append(ids, c.Participants[i].UserID)
		}
	}
	return ids
}
