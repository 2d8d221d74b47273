package dto

import (
	"time"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

// CreatePrivateRoomRequest opens (or returns) the room shared with one user.
type CreatePrivateRoomRequest struct {
	ReceiverUserID string `json:"receiver_user_id" validate:"required,max=64"`
}

// CreateGroupRoomRequest opens a group room with the given initial members.
type CreateGroupRoomRequest struct {
	ReceiverUserIDs []string `json:"receiver_user_ids" validate:"required,min=1,max=100,dive,required,max=64"`
	Name            *string  `json:"name" validate:"omitempty,min=1,max=128"`
}

// InviteRoomRequest adds one user to an existing group room.
type InviteRoomRequest struct {
	ReceiverUserID string `json:"receiver_user_id" validate:"required,max=64"`
}

// RoomsQuery selects one of the room list cursor forms. AfterUpdatedAt is a
// unix-millisecond timestamp; at most one cursor may be supplied.
type RoomsQuery struct {
	PageLimit      int    `query:"page_limit" validate:"omitempty,min=1,max=100"`
	AfterRoomID    string `query:"after_room_id" validate:"omitempty,max=64"`
	AfterUpdatedAt int64  `query:"after_updated_at" validate:"omitempty,min=1"`
}

// RoomLastMessageResponse is the cached preview of the newest message.
type RoomLastMessageResponse struct {
	Text     string    `json:"text"`
	SenderID string    `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// RoomResponse is the serialized room returned to clients. LastSeenAt values
// are unix milliseconds keyed by member id.
type RoomResponse struct {
	RoomID      string                   `json:"room_id"`
	Kind        string                   `json:"kind"`
	Name        *string                  `json:"name,omitempty"`
	MemberIDs   []string                 `json:"member_ids"`
	LastSeenAt  map[string]int64         `json:"last_seen_at,omitempty"`
	UnreadCount map[string]int64         `json:"unread_count,omitempty"`
	LastMessage *RoomLastMessageResponse `json:"last_message,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// RoomUserResponse is one roster entry of getRoomUsers. Left members remain
// listed for historic rooms, flagged so clients can render them greyed out.
type RoomUserResponse struct {
	UserID   string  `json:"user_id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar,omitempty"`
	HasLeft  bool    `json:"has_left,omitempty"`
}

// NewRoomResponse converts a model into a DTO.
func NewRoomResponse(room models.Room) RoomResponse {
	response := RoomResponse{
		RoomID:      room.RoomID,
		Kind:        room.Kind,
		Name:        room.Name,
		MemberIDs:   []string(room.MemberIDs),
		LastSeenAt:  room.LastSeenAt,
		UnreadCount: room.UnreadCount,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}

	if room.LastMessage != nil {
		response.LastMessage = &RoomLastMessageResponse{
			Text:     room.LastMessage.Text,
			SenderID: room.LastMessage.SenderID,
			SentAt:   room.LastMessage.SentAt,
		}
	}

	return response
}

// NewRoomResponseSlice converts a slice of models into DTOs.
func NewRoomResponseSlice(rooms []models.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room))
	}
	return out
}

// NewRoomUserResponseSlice converts roster entries into DTOs.
func NewRoomUserResponseSlice(users []models.RoomUser) []RoomUserResponse {
	out := make([]RoomUserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, RoomUserResponse{
			UserID:   user.UserID,
			Nickname: user.Nickname,
			Avatar:   user.Avatar,
			HasLeft:  user.HasLeft,
		})
	}
	return out
}
