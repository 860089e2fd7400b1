package entity

import "time"

const (
	ParticipantPending   = "pending"
	ParticipantConfirmed = "confirmed"
	ParticipantCancelled = "cancelled"
)

const (
	TripStatusPending  = "pending"
	TripStatusApproved = "approved"
	TripStatusRejected = "rejected"
)

type TripParticipant struct {
	UserID   string    `json:"user" firestore:"userId"`
	Status   string    `json:"status" firestore:"status"`
	JoinedAt time.Time `json:"joined_at" firestore:"joinedAt"`
}

type ItineraryActivity struct {
	Time     string    `json:"time,omitempty" firestore:"time,omitempty"`
	Activity string    `json:"activity" firestore:"activity"`
	Location string    `json:"location,omitempty" firestore:"location,omitempty"`
	Notes    string    `json:"notes,omitempty" firestore:"notes,omitempty"`
	AddedBy  string    `json:"added_by,omitempty" firestore:"addedBy,omitempty"`
	AddedAt  time.Time `json:"added_at,omitempty" firestore:"addedAt,omitempty"`
}

type ItineraryDay struct {
	Day        int                 `json:"day" firestore:"day"`
	Activities []ItineraryActivity `json:"activities" firestore:"activities"`
}

type Trip struct {
	ID              string            `json:"id" firestore:"id"`
	Title           string            `json:"title" firestore:"title"`
	Description     string            `json:"description" firestore:"description"`
	Destination     string            `json:"destination" firestore:"destination"`
	StartDate       time.Time         `json:"start_date" firestore:"startDate"`
	EndDate         time.Time         `json:"end_date" firestore:"endDate"`
	MaxParticipants int               `json:"max_participants" firestore:"maxParticipants"`
	Status          string            `json:"status" firestore:"status"`
	Organizer       string            `json:"organizer" firestore:"organizer"`
	Participants    []TripParticipant `json:"participants" firestore:"participants"`
	// MemberIDs holds organizer + confirmed participants, denormalized for
	// array-contains queries.
	MemberIDs      []string       `json:"-" firestore:"memberIds"`
	Itinerary      []ItineraryDay `json:"itinerary" firestore:"itinerary"`
	LastActivityAt time.Time      `json:"last_activity_at" firestore:"lastActivityAt"`
	CreatedAt      time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time      `json:"updated_at" firestore:"updatedAt"`
}

func (t *Trip) IsOrganizer(userID string) bool {
	return t.Organizer == userID
}

func (t *Trip) FindParticipant(userID string) *TripParticipant {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}

func (t *Trip) IsConfirmedParticipant(userID string) bool {
	p := t.FindParticipant(userID)
	return p != nil && p.Status == ParticipantConfirmed
}

// ConfirmedCount counts confirmed participants, used for capacity checks.
func (t *Trip) ConfirmedCount() int {
	n := 0
	for i := range t.Participants {
		if t.Participants[i].Status == ParticipantConfirmed {
			n++
		}
	}
	return n
}
