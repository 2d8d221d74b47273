package models

import (
	"time"

	"gorm.io/datatypes"
)

// Message kinds.
const (
	MessageKindPrivate = "private"
	MessageKindGroup   = "group"
	MessageKindSystem  = "system"
)

// Media types carried by a message.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeVoice = "voice"
)

// Notice types recorded by system messages.
const (
	NoticeRoomCreated  = "room_created"
	NoticeMemberJoined = "member_joined"
	NoticeMemberLeft   = "member_left"
)

// MessageMedia references externally hosted media attached to a message.
type MessageMedia struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// MessageNotice is the structured payload of a system message. Values holds
// the substitution variables for the client-side template, e.g. nicknames.
type MessageNotice struct {
	Type   string            `json:"type"`
	Values datatypes.JSONMap `json:"values,omitempty"`
}

// Message is one entry in a room's log. Optional fields are pointers so an
// absent value is NULL rather than an ambiguous zero: a deleted message has
// Text == nil, and "is media message" checks never confuse "" with absent.
// System messages have no sender and carry a Notice instead of Text.
type Message struct {
	ID             uint           `gorm:"primaryKey" json:"-"`
	MessageID      string         `gorm:"size:64;uniqueIndex" json:"message_id"`
	RequestedID    string         `gorm:"size:64" json:"requested_id,omitempty"`
	RoomID         string         `gorm:"size:64;index:idx_messages_room_created" json:"room_id"`
	Kind           string         `gorm:"size:16" json:"kind"`
	SenderID       *string        `gorm:"size:64;index" json:"sender_id,omitempty"`
	ReceiverID     *string        `gorm:"size:64" json:"receiver_id,omitempty"`
	Text           *string        `gorm:"type:text" json:"text,omitempty"`
	Media          *MessageMedia  `gorm:"serializer:json" json:"media,omitempty"`
	ReplyMessageID *string        `gorm:"size:64" json:"reply_message_id,omitempty"`
	Notice         *MessageNotice `gorm:"serializer:json" json:"notice,omitempty"`
	CreatedAt      time.Time      `gorm:"index:idx_messages_room_created" json:"created_at"`
	UpdatedAt      *time.Time     `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// IsSystem reports whether the message is a synthesized membership notice.
func (m Message) IsSystem() bool {
	return m.Kind == MessageKindSystem
}
