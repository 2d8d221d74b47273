package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Room kinds. The kind is an explicit discriminant; private and group rooms
// share one table and differ only in the fields they populate.
const (
	RoomKindPrivate = "private"
	RoomKindGroup   = "group"
)

// RoomLastMessage is the cached summary of the newest message, kept on the
// room row for list-view rendering. It is advisory: the message log is the
// source of truth and a stale summary self-heals on the next send.
type RoomLastMessage struct {
	Text     string    `json:"text"`
	SenderID string    `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// Room is a conversation context. MemberIDs preserves join order and must
// never contain duplicates. For private rooms MemberMap mirrors MemberIDs
// exactly (keys == elements) and PairKey is the sorted member pair, unique
// indexed so concurrent first-contact creates collapse onto one row.
type Room struct {
	ID          uint                        `gorm:"primaryKey" json:"-"`
	RoomID      string                      `gorm:"size:64;uniqueIndex" json:"room_id"`
	Kind        string                      `gorm:"size:16;index" json:"kind"`
	Name        *string                     `gorm:"size:128" json:"name,omitempty"`
	PairKey     *string                     `gorm:"size:160;uniqueIndex" json:"-"`
	MemberIDs   datatypes.JSONSlice[string] `gorm:"type:json" json:"member_ids"`
	MemberMap   map[string]bool             `gorm:"serializer:json" json:"member_map,omitempty"`
	LastSeenAt  map[string]int64            `gorm:"serializer:json" json:"last_seen_at"`
	UnreadCount map[string]int64            `gorm:"serializer:json" json:"unread_count"`
	LastMessage *RoomLastMessage            `gorm:"serializer:json" json:"last_message,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime:false;index" json:"updated_at"`
	DeletedAt   *time.Time                  `json:"deleted_at,omitempty"`
}

// HasMember reports whether userID is currently in the member set.
func (r Room) HasMember(userID string) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RoomMember is the membership index row maintained beside the room record.
// It exists so "rooms for user" is an indexed query instead of a JSON scan.
type RoomMember struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	RoomID   string    `gorm:"size:64;uniqueIndex:idx_room_members_room_user" json:"room_id"`
	UserID   string    `gorm:"size:64;uniqueIndex:idx_room_members_room_user;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomUser is the resolved roster entry returned by getRoomUsers.
type RoomUser struct {
	UserID   string  `json:"user_id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar,omitempty"`
	HasLeft  bool    `json:"has_left,omitempty"`
}

// PrivatePairKey builds the deterministic key for an unordered user pair.
func PrivatePairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}
