package models

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a registered account. The UserID comes from the identity
// provider and never changes; the numeric ID is only a storage surrogate.
type User struct {
	ID           uint                        `gorm:"primaryKey" json:"-"`
	UserID       string                      `gorm:"size:64;uniqueIndex" json:"user_id"`
	PhoneNumber  string                      `gorm:"size:32" json:"phone_number"`
	Nickname     string                      `gorm:"size:64" json:"nickname"`
	Locale       string                      `gorm:"size:16;default:en-US" json:"locale"`
	Avatar       *string                     `gorm:"size:512" json:"avatar,omitempty"`
	PushTokens   datatypes.JSONSlice[string] `gorm:"type:json" json:"push_tokens"`
	RegisteredAt time.Time                   `json:"registered_at"`
	UpdatedAt    *time.Time                  `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	LeftAt       *time.Time                  `json:"left_at,omitempty"`
	LastSeenAt   *time.Time                  `json:"last_seen_at,omitempty"`
}

// HasLeft reports whether the account is soft-deleted. Left users stay on
// file so historic rooms and messages keep resolving.
func (u User) HasLeft() bool {
	return u.LeftAt != nil
}
