package dto

import (
	"time"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

// MediaPayload references externally hosted media attached to a message.
type MediaPayload struct {
	Type string `json:"type" validate:"required,oneof=image video voice"`
	URI  string `json:"uri" validate:"required,url,max=1024"`
}

// SendMessageRequest is the payload for both private and group sends. The
// sender is always the authenticated caller. ReceiverUserID and
// ReplyMessageID are honoured on group sends only.
type SendMessageRequest struct {
	RequestedID    string        `json:"requested_id" validate:"required,min=1,max=64"`
	Text           *string       `json:"text" validate:"omitempty,max=4000"`
	Media          *MediaPayload `json:"media" validate:"omitempty"`
	ReceiverUserID *string       `json:"receiver_user_id" validate:"omitempty,max=64"`
	ReplyMessageID *string       `json:"reply_message_id" validate:"omitempty,max=64"`
}

// SendMessageResponse echoes the client's request id beside the authoritative
// record so optimistic local echoes can be reconciled.
type SendMessageResponse struct {
	RoomID      string    `json:"room_id"`
	RequestedID string    `json:"requested_id"`
	MessageID   string    `json:"message_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpdateTextMessageRequest replaces the text of an existing message.
type UpdateTextMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// MessagesQuery selects one of the message list cursor forms.
// BeforeCreatedAt is a unix-millisecond timestamp; at most one cursor may be
// supplied.
type MessagesQuery struct {
	PageLimit       int    `query:"page_limit" validate:"omitempty,min=1,max=100"`
	BeforeMessageID string `query:"before_message_id" validate:"omitempty,max=64"`
	BeforeCreatedAt int64  `query:"before_created_at" validate:"omitempty,min=1"`
}

// MessageNoticeResponse is the structured payload of a system message.
type MessageNoticeResponse struct {
	Type   string                 `json:"type"`
	Values map[string]interface{} `json:"values,omitempty"`
}

// MessageResponse is the serialized message returned to clients.
type MessageResponse struct {
	MessageID      string                 `json:"message_id"`
	RequestedID    string                 `json:"requested_id,omitempty"`
	RoomID         string                 `json:"room_id"`
	Kind           string                 `json:"kind"`
	SenderID       *string                `json:"sender_id,omitempty"`
	ReceiverID     *string                `json:"receiver_id,omitempty"`
	Text           *string                `json:"text,omitempty"`
	Media          *MediaPayload          `json:"media,omitempty"`
	ReplyMessageID *string                `json:"reply_message_id,omitempty"`
	Notice         *MessageNoticeResponse `json:"notice,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      *time.Time             `json:"updated_at,omitempty"`
	DeletedAt      *time.Time             `json:"deleted_at,omitempty"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	response := MessageResponse{
		MessageID:      message.MessageID,
		RequestedID:    message.RequestedID,
		RoomID:         message.RoomID,
		Kind:           message.Kind,
		SenderID:       message.SenderID,
		ReceiverID:     message.ReceiverID,
		Text:           message.Text,
		ReplyMessageID: message.ReplyMessageID,
		CreatedAt:      message.CreatedAt,
		UpdatedAt:      message.UpdatedAt,
		DeletedAt:      message.DeletedAt,
	}

	if message.Media != nil {
		response.Media = &MediaPayload{Type: message.Media.Type, URI: message.Media.URI}
	}

	if message.Notice != nil {
		response.Notice = &MessageNoticeResponse{
			Type:   message.Notice.Type,
			Values: message.Notice.Values,
		}
	}

	return response
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
