package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

// RoomService implements room lifecycle and membership transitions. Private
// rooms are created at most once per unordered pair; group rooms support
// invite/leave without ever dissolving.
type RoomService interface {
	CreatePrivateRoom(ctx context.Context, callerID string, payload dto.CreatePrivateRoomRequest) (dto.RoomResponse, error)
	CreateGroupRoom(ctx context.Context, callerID string, payload dto.CreateGroupRoomRequest) (dto.RoomResponse, error)
	InviteGroupRoom(ctx context.Context, callerID, roomID string, payload dto.InviteRoomRequest) (dto.RoomResponse, error)
	LeaveGroupRoom(ctx context.Context, callerID, roomID string) error
	JoinRoom(ctx context.Context, callerID, roomID string) error
	GetRoom(ctx context.Context, roomID string) (dto.RoomResponse, error)
	GetRooms(ctx context.Context, callerID string, query dto.RoomsQuery) ([]dto.RoomResponse, error)
	GetRoomUsers(ctx context.Context, roomID string) ([]dto.RoomUserResponse, error)
}

type roomService struct {
	rooms     repository.RoomRepository
	users     repository.UserRepository
	messages  repository.MessageRepository
	presence  PresenceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRoomService constructs a room service instance.
func NewRoomService(
	rooms repository.RoomRepository,
	users repository.UserRepository,
	messages repository.MessageRepository,
	presence PresenceService,
	validate *validator.Validate,
	logger zerolog.Logger,
) RoomService {
	return &roomService{
		rooms:     rooms,
		users:     users,
		messages:  messages,
		presence:  presence,
		validator: validate,
		logger:    logger.With().Str("component", "room_service").Logger(),
	}
}

// CreatePrivateRoom is idempotent per unordered pair: the deterministic pair
// key is unique-indexed, so even two racing first-contact requests converge
// on a single room.
func (s *roomService) CreatePrivateRoom(ctx context.Context, callerID string, payload dto.CreatePrivateRoomRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	receiverID := payload.ReceiverUserID
	if callerID == receiverID {
		return dto.RoomResponse{}, ErrSameUser
	}

	pairKey := models.PrivatePairKey(callerID, receiverID)

	if existing, err := s.rooms.FindPrivateByPairKey(ctx, pairKey); err == nil {
		return dto.NewRoomResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RoomResponse{}, err
	}

	if _, err := s.activeUser(ctx, callerID); err != nil {
		return dto.RoomResponse{}, err
	}
	if _, err := s.activeUser(ctx, receiverID); err != nil {
		return dto.RoomResponse{}, err
	}

	now := time.Now().UTC()
	nowMilli := now.UnixMilli()
	room := models.Room{
		RoomID:  uuid.NewString(),
		Kind:    models.RoomKindPrivate,
		PairKey: &pairKey,
		MemberIDs: datatypes.NewJSONSlice(
			[]string{callerID, receiverID},
		),
		MemberMap:   map[string]bool{callerID: true, receiverID: true},
		LastSeenAt:  map[string]int64{callerID: nowMilli, receiverID: nowMilli},
		UnreadCount: map[string]int64{callerID: 0, receiverID: 0},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.rooms.Create(ctx, &room); err != nil {
		// Lost the create race: the unique pair key points at the winner.
		if winner, findErr := s.rooms.FindPrivateByPairKey(ctx, pairKey); findErr == nil {
			return dto.NewRoomResponse(winner), nil
		}
		return dto.RoomResponse{}, err
	}

	s.logger.Info().Str("room_id", room.RoomID).Msg("private room created")

	return dto.NewRoomResponse(room), nil
}

func (s *roomService) CreateGroupRoom(ctx context.Context, callerID string, payload dto.CreateGroupRoomRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	receiverIDs := uniqueUserIDs(payload.ReceiverUserIDs)
	for _, receiverID := range receiverIDs {
		if receiverID == callerID {
			return dto.RoomResponse{}, ErrSameUser
		}
	}

	caller, err := s.activeUser(ctx, callerID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	for _, receiverID := range receiverIDs {
		if _, err := s.activeUser(ctx, receiverID); err != nil {
			return dto.RoomResponse{}, err
		}
	}

	now := time.Now().UTC()
	nowMilli := now.UnixMilli()

	memberIDs := append([]string{callerID}, receiverIDs...)
	lastSeen := make(map[string]int64, len(memberIDs))
	unread := make(map[string]int64, len(memberIDs))
	for _, id := range memberIDs {
		lastSeen[id] = nowMilli
		unread[id] = 0
	}

	room := models.Room{
		RoomID:      uuid.NewString(),
		Kind:        models.RoomKindGroup,
		Name:        payload.Name,
		MemberIDs:   datatypes.NewJSONSlice(memberIDs),
		LastSeenAt:  lastSeen,
		UnreadCount: unread,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.rooms.Create(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.emitSystemMessage(ctx, room.RoomID, models.NoticeRoomCreated, datatypes.JSONMap{
		"senderNickname": caller.Nickname,
	})

	s.logger.Info().Str("room_id", room.RoomID).Int("members", len(memberIDs)).Msg("group room created")

	return dto.NewRoomResponse(room), nil
}

func (s *roomService) InviteGroupRoom(ctx context.Context, callerID, roomID string, payload dto.InviteRoomRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	receiverID := payload.ReceiverUserID
	if callerID == receiverID {
		return dto.RoomResponse{}, ErrSameUser
	}

	sender, err := s.activeUser(ctx, callerID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	receiver, err := s.activeUser(ctx, receiverID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	if room.Kind != models.RoomKindGroup {
		return dto.RoomResponse{}, ErrNotGroupRoom
	}

	if room.HasMember(receiverID) {
		return dto.RoomResponse{}, ErrAlreadyMember
	}

	now := time.Now().UTC()
	room.MemberIDs = append(room.MemberIDs, receiverID)
	if room.LastSeenAt == nil {
		room.LastSeenAt = map[string]int64{}
	}
	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int64{}
	}
	room.LastSeenAt[receiverID] = now.UnixMilli()
	room.UnreadCount[receiverID] = 0
	if room.MemberMap != nil {
		room.MemberMap[receiverID] = true
	}
	room.UpdatedAt = now

	if err := s.rooms.Save(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.emitSystemMessage(ctx, room.RoomID, models.NoticeMemberJoined, datatypes.JSONMap{
		"senderNickname":   sender.Nickname,
		"receiverNickname": receiver.Nickname,
	})

	return dto.NewRoomResponse(room), nil
}

// LeaveGroupRoom removes the caller from the member set and every per-member
// side map. An emptied room persists, reachable only by id.
func (s *roomService) LeaveGroupRoom(ctx context.Context, callerID, roomID string) error {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return err
	}

	if room.Kind != models.RoomKindGroup {
		return ErrNotGroupRoom
	}

	members := make([]string, 0, len(room.MemberIDs))
	for _, id := range room.MemberIDs {
		if id != callerID {
			members = append(members, id)
		}
	}
	room.MemberIDs = datatypes.NewJSONSlice(members)
	delete(room.LastSeenAt, callerID)
	delete(room.UnreadCount, callerID)
	delete(room.MemberMap, callerID)
	room.UpdatedAt = time.Now().UTC()

	if err := s.rooms.Save(ctx, &room); err != nil {
		return err
	}

	nickname := callerID
	if user, userErr := s.users.FindByUserID(ctx, callerID); userErr == nil {
		nickname = user.Nickname
	}

	s.emitSystemMessage(ctx, room.RoomID, models.NoticeMemberLeft, datatypes.JSONMap{
		"userNickname": nickname,
	})

	return nil
}

// JoinRoom marks the caller caught-up in the room: the unread count resets,
// the last-seen stamp advances, and the presence record points here so
// fanout suppresses pushes while the room is on screen.
func (s *roomService) JoinRoom(ctx context.Context, callerID, roomID string) error {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if room.LastSeenAt == nil {
		room.LastSeenAt = map[string]int64{}
	}
	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int64{}
	}
	room.LastSeenAt[callerID] = now.UnixMilli()
	room.UnreadCount[callerID] = 0
	room.UpdatedAt = now

	if err := s.rooms.Save(ctx, &room); err != nil {
		return err
	}

	if err := s.presence.SetJoinedRoom(ctx, callerID, roomID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", callerID).Msg("failed to update presence joined room")
	}

	return nil
}

func (s *roomService) GetRoom(ctx context.Context, roomID string) (dto.RoomResponse, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	return dto.NewRoomResponse(room), nil
}

func (s *roomService) GetRooms(ctx context.Context, callerID string, query dto.RoomsQuery) ([]dto.RoomResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	var (
		rooms []models.Room
		err   error
	)

	switch {
	case query.AfterRoomID != "":
		rooms, err = s.rooms.ListForUserAfterRoom(ctx, callerID, query.AfterRoomID, query.PageLimit)
	case query.AfterUpdatedAt > 0:
		after := time.UnixMilli(query.AfterUpdatedAt).UTC()
		rooms, err = s.rooms.ListForUserAfterUpdatedAt(ctx, callerID, after, query.PageLimit)
	default:
		rooms, err = s.rooms.ListForUser(ctx, callerID, query.PageLimit)
	}
	if err != nil {
		return nil, err
	}

	return dto.NewRoomResponseSlice(rooms), nil
}

// GetRoomUsers resolves the roster including members who have since left, so
// historic rooms still render every participant.
func (s *roomService) GetRoomUsers(ctx context.Context, roomID string) ([]dto.RoomUserResponse, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.FindMany(ctx, []string(room.MemberIDs))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.UserID] = user
	}

	roster := make([]models.RoomUser, 0, len(room.MemberIDs))
	for _, memberID := range room.MemberIDs {
		user, ok := byID[memberID]
		if !ok {
			continue
		}
		roster = append(roster, models.RoomUser{
			UserID:   user.UserID,
			Nickname: user.Nickname,
			Avatar:   user.Avatar,
			HasLeft:  user.HasLeft(),
		})
	}

	return dto.NewRoomUserResponseSlice(roster), nil
}

// uniqueUserIDs drops repeated ids while keeping first-seen order, so a
// sloppy client list cannot produce duplicate members.
func uniqueUserIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *roomService) activeUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindByUserID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if user.HasLeft() {
		return models.User{}, ErrUserLeft
	}

	return user, nil
}

// emitSystemMessage appends a membership notice to the room log. Failure to
// record the notice never fails the membership change itself.
func (s *roomService) emitSystemMessage(ctx context.Context, roomID, noticeType string, values datatypes.JSONMap) {
	message := models.Message{
		MessageID: uuid.NewString(),
		RoomID:    roomID,
		Kind:      models.MessageKindSystem,
		Notice:    &models.MessageNotice{Type: noticeType, Values: values},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, &message); err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID).Str("notice", noticeType).Msg("failed to record system message")
	}
}
