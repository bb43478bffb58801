package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// User represents a rider account. Accounts are created and managed by the
// REST API service; this process only reads them to resolve identities.
type User struct {
	gorm.Model
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	// Avatar is optional and can be used to store a profile picture URL
	Avatar string `json:"avatar,omitempty"`
}

/** -------------------- DTOs -------------------- */
// UserRef is the compact user shape embedded in outbound events
// (notification sourceUser, pack invitation invitedBy).
type UserRef struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// StatusUpdate is published on the presence pub/sub channel when a rider
// goes online or offline.
type StatusUpdate struct {
	UserID    uint      `json:"userId"`
	Status    string    `json:"status"` // online || offline
	Timestamp time.Time `json:"timestamp"`
}

func (u *User) Ref() UserRef {
	return UserRef{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
