package dto

import (
	"time"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

// RegisterUserRequest is the payload for first-time registration. The user id
// itself comes from the verified identity context, never from the body.
type RegisterUserRequest struct {
	Nickname    string  `json:"nickname" validate:"required,min=1,max=64"`
	PhoneNumber string  `json:"phone_number" validate:"required,min=3,max=32"`
	Locale      string  `json:"locale" validate:"omitempty,max=16"`
	Avatar      *string `json:"avatar" validate:"omitempty,url,max=512"`
	PushToken   *string `json:"push_token" validate:"omitempty,min=8,max=512"`
}

// ModifyUserRequest carries partial profile updates; nil fields are untouched.
// PushToken registers an additional device token for the account.
type ModifyUserRequest struct {
	Nickname    *string `json:"nickname" validate:"omitempty,min=1,max=64"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=3,max=32"`
	Locale      *string `json:"locale" validate:"omitempty,max=16"`
	Avatar      *string `json:"avatar" validate:"omitempty,url,max=512"`
	PushToken   *string `json:"push_token" validate:"omitempty,min=8,max=512"`
}

// UserResponse is the serialized profile returned to clients.
type UserResponse struct {
	UserID       string     `json:"user_id"`
	PhoneNumber  string     `json:"phone_number"`
	Nickname     string     `json:"nickname"`
	Locale       string     `json:"locale"`
	Avatar       *string    `json:"avatar,omitempty"`
	PushTokens   []string   `json:"push_tokens"`
	RegisteredAt time.Time  `json:"registered_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		UserID:       user.UserID,
		PhoneNumber:  user.PhoneNumber,
		Nickname:     user.Nickname,
		Locale:       user.Locale,
		Avatar:       user.Avatar,
		PushTokens:   []string(user.PushTokens),
		RegisteredAt: user.RegisteredAt,
		UpdatedAt:    user.UpdatedAt,
		LastSeenAt:   user.LastSeenAt,
	}
}
