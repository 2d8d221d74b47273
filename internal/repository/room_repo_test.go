package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

func groupRoom(roomID string, members []string, updatedAt time.Time) models.Room {
	lastSeen := make(map[string]int64, len(members))
	unread := make(map[string]int64, len(members))
	for _, id := range members {
		lastSeen[id] = updatedAt.UnixMilli()
		unread[id] = 0
	}
	return models.Room{
		RoomID:      roomID,
		Kind:        models.RoomKindGroup,
		MemberIDs:   datatypes.NewJSONSlice(members),
		LastSeenAt:  lastSeen,
		UnreadCount: unread,
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
}

func TestRoomRepositoryMemberIndexFollowsMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := groupRoom("room-1", []string{"alice", "bob"}, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, &room))

	var count int64
	require.NoError(t, db.Model(&models.RoomMember{}).Where("room_id = ?", "room-1").Count(&count).Error)
	require.EqualValues(t, 2, count)

	room.MemberIDs = datatypes.NewJSONSlice([]string{"bob", "carol"})
	require.NoError(t, repo.Save(ctx, &room))

	var rows []models.RoomMember
	require.NoError(t, db.Where("room_id = ?", "room-1").Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, "bob", rows[0].UserID)
	require.Equal(t, "carol", rows[1].UserID)

	room.MemberIDs = datatypes.NewJSONSlice([]string{})
	require.NoError(t, repo.Save(ctx, &room))
	require.NoError(t, db.Model(&models.RoomMember{}).Where("room_id = ?", "room-1").Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestRoomRepositoryPairKeyUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	pairKey := models.PrivatePairKey("alice", "bob")
	now := time.Now().UTC()

	first := groupRoom("room-a", []string{"alice", "bob"}, now)
	first.Kind = models.RoomKindPrivate
	first.PairKey = &pairKey
	require.NoError(t, repo.Create(ctx, &first))

	second := groupRoom("room-b", []string{"alice", "bob"}, now)
	second.Kind = models.RoomKindPrivate
	second.PairKey = &pairKey
	require.Error(t, repo.Create(ctx, &second))

	found, err := repo.FindPrivateByPairKey(ctx, pairKey)
	require.NoError(t, err)
	require.Equal(t, "room-a", found.RoomID)

	_, err = repo.FindPrivateByPairKey(ctx, models.PrivatePairKey("alice", "carol"))
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRoomRepositoryListForUserOrderingAndCursor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		room := groupRoom(fmt.Sprintf("room-%d", i), []string{"alice", fmt.Sprintf("peer-%d", i)}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, &room))
	}
	other := groupRoom("room-other", []string{"bob"}, base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, &other))

	page, err := repo.ListForUser(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "room-4", page[0].RoomID)
	require.Equal(t, "room-3", page[1].RoomID)

	newer, err := repo.ListForUserAfterRoom(ctx, "alice", "room-2", 10)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	require.Equal(t, "room-4", newer[0].RoomID)
	require.Equal(t, "room-3", newer[1].RoomID)

	top, err := repo.ListForUserAfterRoom(ctx, "alice", "room-4", 10)
	require.NoError(t, err)
	require.Empty(t, top)

	_, err = repo.ListForUserAfterRoom(ctx, "alice", "missing", 2)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	fresh, err := repo.ListForUserAfterUpdatedAt(ctx, "alice", base.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	require.Equal(t, "room-4", fresh[0].RoomID)
	require.Equal(t, "room-3", fresh[1].RoomID)
}

func TestRoomRepositoryAfterRoomCursorReturnsNewerRooms(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, roomID := range []string{"room-old", "room-cursor", "room-new"} {
		room := groupRoom(roomID, []string{"alice"}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, &room))
	}

	rooms, err := repo.ListForUserAfterRoom(ctx, "alice", "room-cursor", 10)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "room-new", rooms[0].RoomID)

	// Tied timestamps resolve by insertion order, newer inserts first.
	tied := groupRoom("room-tied", []string{"alice"}, base.Add(time.Minute))
	require.NoError(t, repo.Create(ctx, &tied))

	rooms, err = repo.ListForUserAfterRoom(ctx, "alice", "room-cursor", 10)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "room-new", rooms[0].RoomID)
	require.Equal(t, "room-tied", rooms[1].RoomID)
}

func TestRoomRepositoryJSONRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	room := groupRoom("room-json", []string{"alice", "bob"}, now)
	room.LastMessage = &models.RoomLastMessage{Text: "hi", SenderID: "alice", SentAt: now}
	room.UnreadCount["bob"] = 3
	require.NoError(t, repo.Create(ctx, &room))

	loaded, err := repo.FindByRoomID(ctx, "room-json")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, []string(loaded.MemberIDs))
	require.NotNil(t, loaded.LastMessage)
	require.Equal(t, "hi", loaded.LastMessage.Text)
	require.EqualValues(t, 3, loaded.UnreadCount["bob"])
}
