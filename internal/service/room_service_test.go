package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

type roomFixture struct {
	rooms    RoomService
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
}

func newRoomFixture(t *testing.T, userIDs ...string) roomFixture {
	t.Helper()
	db := setupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	presence := NewPresenceService(nil, time.Minute, testLogger())

	now := time.Now().UTC()
	for _, id := range userIDs {
		user := models.User{UserID: id, Nickname: "nick-" + id, PhoneNumber: "+1555" + id, RegisteredAt: now}
		require.NoError(t, userRepo.Create(context.Background(), &user))
	}

	return roomFixture{
		rooms:    NewRoomService(roomRepo, userRepo, msgRepo, presence, validate, testLogger()),
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

func (f roomFixture) systemMessages(t *testing.T, roomID string) []models.Message {
	t.Helper()
	messages, err := f.msgRepo.ListByRoom(context.Background(), roomID, 50)
	require.NoError(t, err)
	system := make([]models.Message, 0, len(messages))
	for _, message := range messages {
		if message.IsSystem() {
			system = append(system, message)
		}
	}
	return system
}

func TestCreatePrivateRoomIsIdempotentPerPair(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob")
	ctx := context.Background()

	first, err := f.rooms.CreatePrivateRoom(ctx, "alice", dto.CreatePrivateRoomRequest{ReceiverUserID: "bob"})
	require.NoError(t, err)
	require.Equal(t, models.RoomKindPrivate, first.Kind)
	require.Equal(t, []string{"alice", "bob"}, first.MemberIDs)
	require.EqualValues(t, 0, first.UnreadCount["alice"])
	require.EqualValues(t, 0, first.UnreadCount["bob"])

	// The same pair from either side resolves to the same room.
	second, err := f.rooms.CreatePrivateRoom(ctx, "bob", dto.CreatePrivateRoomRequest{ReceiverUserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, first.RoomID, second.RoomID)
}

func TestCreatePrivateRoomRejectsBadPairs(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	_, err := f.rooms.CreatePrivateRoom(ctx, "alice", dto.CreatePrivateRoomRequest{ReceiverUserID: "alice"})
	require.True(t, errors.Is(err, ErrSameUser))

	_, err = f.rooms.CreatePrivateRoom(ctx, "alice", dto.CreatePrivateRoomRequest{ReceiverUserID: "nobody"})
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	left, err := f.userRepo.FindByUserID(ctx, "carol")
	require.NoError(t, err)
	now := time.Now().UTC()
	left.LeftAt = &now
	require.NoError(t, f.userRepo.Save(ctx, &left))

	_, err = f.rooms.CreatePrivateRoom(ctx, "alice", dto.CreatePrivateRoomRequest{ReceiverUserID: "carol"})
	require.True(t, errors.Is(err, ErrUserLeft))
}

func TestCreateGroupRoomEmitsCreationNotice(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	name := "weekend plans"
	room, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{
		ReceiverUserIDs: []string{"bob", "carol"},
		Name:            &name,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoomKindGroup, room.Kind)
	require.Equal(t, []string{"alice", "bob", "carol"}, room.MemberIDs)
	require.NotNil(t, room.Name)
	require.Equal(t, "weekend plans", *room.Name)

	system := f.systemMessages(t, room.RoomID)
	require.Len(t, system, 1)
	require.Equal(t, models.NoticeRoomCreated, system[0].Notice.Type)
	require.Equal(t, "nick-alice", system[0].Notice.Values["senderNickname"])
	require.Nil(t, system[0].SenderID)

	_, err = f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{ReceiverUserIDs: []string{"alice"}})
	require.True(t, errors.Is(err, ErrSameUser))
}

func TestCreateGroupRoomDedupesReceivers(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	room, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{
		ReceiverUserIDs: []string{"bob", "bob", "carol", "bob"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, room.MemberIDs)
	require.Len(t, room.UnreadCount, 3)
	require.Len(t, room.LastSeenAt, 3)

	roster, err := f.rooms.GetRoomUsers(ctx, room.RoomID)
	require.NoError(t, err)
	require.Len(t, roster, 3)
}

func TestInviteGroupRoom(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	room, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{ReceiverUserIDs: []string{"bob"}})
	require.NoError(t, err)

	invited, err := f.rooms.InviteGroupRoom(ctx, "alice", room.RoomID, dto.InviteRoomRequest{ReceiverUserID: "carol"})
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, invited.MemberIDs)
	require.EqualValues(t, 0, invited.UnreadCount["carol"])

	system := f.systemMessages(t, room.RoomID)
	require.Len(t, system, 2)
	require.Equal(t, models.NoticeMemberJoined, system[0].Notice.Type)
	require.Equal(t, "nick-alice", system[0].Notice.Values["senderNickname"])
	require.Equal(t, "nick-carol", system[0].Notice.Values["receiverNickname"])

	_, err = f.rooms.InviteGroupRoom(ctx, "alice", room.RoomID, dto.InviteRoomRequest{ReceiverUserID: "carol"})
	require.True(t, errors.Is(err, ErrAlreadyMember))

	_, err = f.rooms.InviteGroupRoom(ctx, "alice", room.RoomID, dto.InviteRoomRequest{ReceiverUserID: "alice"})
	require.True(t, errors.Is(err, ErrSameUser))
}

func TestInviteIntoPrivateRoomRejected(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	room, err := f.rooms.CreatePrivateRoom(ctx, "alice", dto.CreatePrivateRoomRequest{ReceiverUserID: "bob"})
	require.NoError(t, err)

	_, err = f.rooms.InviteGroupRoom(ctx, "alice", room.RoomID, dto.InviteRoomRequest{ReceiverUserID: "carol"})
	require.True(t, errors.Is(err, ErrNotGroupRoom))
}

func TestLeaveGroupRoomRemovesAllTraces(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	room, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{ReceiverUserIDs: []string{"bob", "carol"}})
	require.NoError(t, err)

	require.NoError(t, f.rooms.LeaveGroupRoom(ctx, "bob", room.RoomID))

	reloaded, err := f.roomRepo.FindByRoomID(ctx, room.RoomID)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "carol"}, []string(reloaded.MemberIDs))
	require.NotContains(t, reloaded.LastSeenAt, "bob")
	require.NotContains(t, reloaded.UnreadCount, "bob")

	system := f.systemMessages(t, room.RoomID)
	require.Len(t, system, 2)
	require.Equal(t, models.NoticeMemberLeft, system[0].Notice.Type)
	require.Equal(t, "nick-bob", system[0].Notice.Values["userNickname"])

	// Departed members no longer see the room in their listing.
	rooms, err := f.rooms.GetRooms(ctx, "bob", dto.RoomsQuery{})
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestJoinRoomResetsUnread(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob")
	ctx := context.Background()

	created, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{ReceiverUserIDs: []string{"bob"}})
	require.NoError(t, err)

	room, err := f.roomRepo.FindByRoomID(ctx, created.RoomID)
	require.NoError(t, err)
	room.UnreadCount["bob"] = 7
	before := time.Now().UTC().Add(-time.Hour)
	room.LastSeenAt["bob"] = before.UnixMilli()
	require.NoError(t, f.roomRepo.Save(ctx, &room))

	require.NoError(t, f.rooms.JoinRoom(ctx, "bob", created.RoomID))

	reloaded, err := f.roomRepo.FindByRoomID(ctx, created.RoomID)
	require.NoError(t, err)
	require.EqualValues(t, 0, reloaded.UnreadCount["bob"])
	require.Greater(t, reloaded.LastSeenAt["bob"], before.UnixMilli())
}

func TestGetRoomUsersFlagsLeftMembers(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob")
	ctx := context.Background()

	room, err := f.rooms.CreateGroupRoom(ctx, "alice", dto.CreateGroupRoomRequest{ReceiverUserIDs: []string{"bob"}})
	require.NoError(t, err)

	bob, err := f.userRepo.FindByUserID(ctx, "bob")
	require.NoError(t, err)
	now := time.Now().UTC()
	bob.LeftAt = &now
	require.NoError(t, f.userRepo.Save(ctx, &bob))

	roster, err := f.rooms.GetRoomUsers(ctx, room.RoomID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "alice", roster[0].UserID)
	require.False(t, roster[0].HasLeft)
	require.Equal(t, "bob", roster[1].UserID)
	require.True(t, roster[1].HasLeft)
}
