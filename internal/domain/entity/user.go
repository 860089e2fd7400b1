package entity

import "time"

const (
	RoleTraveler = "traveler"
	RoleGuide    = "guide"
	RoleAdmin    = "admin"
)

type User struct {
	ID       string `json:"id" firestore:"id"`
	Email    string `json:"email" firestore:"email"`
	Name     string `json:"name" firestore:"name"`
	Bio      string `json:"bio,omitempty" firestore:"bio,omitempty"`
	Location string `json:"location,omitempty" firestore:"location,omitempty"`
	Role     string `json:"role" firestore:"role"`

	// Presence fields are written only by the presence tracker; everything
	// else reads them as-is from profile fetches.
	IsOnline bool      `json:"is_online" firestore:"isOnline"`
	LastSeen time.Time `json:"last_seen" firestore:"lastSeen"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// PublicInfo is the shape embedded in broadcast payloads.
type PublicInfo struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (u *User) Public() PublicInfo {
	return PublicInfo{ID: u.ID, Name: u.Name}
}
