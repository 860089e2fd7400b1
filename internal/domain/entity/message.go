package entity

import "time"

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeFile     = "file"
	MessageTypeSystem   = "system"
	MessageTypeQuestion = "question"
	MessageTypeAnswer   = "answer"
)

// MaxMessageContentLength bounds message content, matching the store-level
// constraint on the messages collection.
const MaxMessageContentLength = 2000

type ReadReceipt struct {
	UserID string    `json:"user" firestore:"userId"`
	ReadAt time.Time `json:"read_at" firestore:"readAt"`
}

type Reaction struct {
	UserID    string    `json:"user" firestore:"userId"`
	Emoji     string    `json:"emoji" firestore:"emoji"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// MessageMetadata carries the question/answer workflow state.
type MessageMetadata struct {
	IsAnswered bool      `json:"is_answered" firestore:"isAnswered"`
	AnsweredBy string    `json:"answered_by,omitempty" firestore:"answeredBy,omitempty"`
	AnsweredAt time.Time `json:"answered_at,omitempty" firestore:"answeredAt,omitempty"`
}

type Message struct {
	ID        string          `json:"id" firestore:"id"`
	ChatID    string          `json:"chat_id" firestore:"chatId"`
	SenderID  string          `json:"sender_id" firestore:"senderId"`
	Content   string          `json:"content" firestore:"content"`
	Type      string          `json:"type" firestore:"type"`
	ReplyTo   string          `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	IsEdited  bool            `json:"is_edited" firestore:"isEdited"`
	EditedAt  time.Time       `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	IsDeleted bool            `json:"is_deleted" firestore:"isDeleted"`
	DeletedAt time.Time       `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	ReadBy    []ReadReceipt   `json:"read_by" firestore:"readBy"`
	Reactions []Reaction      `json:"reactions,omitempty" firestore:"reactions,omitempty"`
	Metadata  MessageMetadata `json:"metadata" firestore:"metadata"`
	CreatedAt time.Time       `json:"created_at" firestore:"createdAt"`
}

func (m *Message) ReadByUser(userID string) bool {
	for i := range m.ReadBy {
		if m.ReadBy[i].UserID == userID {
			return true
		}
	}
	return false
}
