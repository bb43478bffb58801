package models

import (
	"gorm.io/gorm"
)

// Pack member roles and statuses.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"

	StatusActive  = "active"
	StatusInvited = "invited"
)

/** --------------------ENTITIES-------------------- */
// Pack represents a riding group. Pack CRUD lives in the REST API service;
// the realtime engine reads membership at connect time and on invites.
type Pack struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`

	Members []PackMember `gorm:"foreignKey:PackID" json:"members,omitempty"`
}

// PackMember binds a user to a pack with a role and a membership status.
// The (pack_id, user_id) pair is unique so invites can be upserted.
type PackMember struct {
	gorm.Model
	PackID uint   `gorm:"uniqueIndex:idx_pack_member;not null" json:"packId"`
	UserID uint   `gorm:"uniqueIndex:idx_pack_member;not null" json:"userId"`
	Role   string `gorm:"not null;default:member" json:"role"`     // owner || admin || member
	Status string `gorm:"not null;default:invited" json:"status"` // active || invited
}
