package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Presence states.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

const presenceKeyPrefix = "presence:"

// PresenceStatus is the ephemeral per-user record kept in Redis. A missing
// record reads as offline so fanout errs on the side of notifying.
type PresenceStatus struct {
	State        string    `json:"state"`
	JoinedRoomID string    `json:"joined_room_id,omitempty"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Online reports whether the user currently holds a realtime connection.
func (p PresenceStatus) Online() bool {
	return p.State == PresenceOnline
}

// PresenceService tracks online/offline state and the currently joined room.
type PresenceService interface {
	Get(ctx context.Context, userID string) (PresenceStatus, error)
	MarkOnline(ctx context.Context, userID, joinedRoomID string) error
	MarkOffline(ctx context.Context, userID string) error
	SetJoinedRoom(ctx context.Context, userID, roomID string) error
}

type presenceService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewPresenceService constructs a Redis-backed presence service. A nil client
// degrades to "everyone offline", which keeps notification fanout working.
func NewPresenceService(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) PresenceService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &presenceService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With().Str("component", "presence_service").Logger(),
	}
}

func (s *presenceService) Get(ctx context.Context, userID string) (PresenceStatus, error) {
	offline := PresenceStatus{State: PresenceOffline}
	if s.redis == nil {
		return offline, nil
	}

	raw, err := s.redis.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return offline, nil
		}
		return offline, err
	}

	var status PresenceStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("invalid presence record")
		return offline, nil
	}

	return status, nil
}

func (s *presenceService) MarkOnline(ctx context.Context, userID, joinedRoomID string) error {
	return s.set(ctx, userID, PresenceStatus{
		State:        PresenceOnline,
		JoinedRoomID: joinedRoomID,
		LastSeenAt:   time.Now().UTC(),
	})
}

func (s *presenceService) MarkOffline(ctx context.Context, userID string) error {
	return s.set(ctx, userID, PresenceStatus{
		State:      PresenceOffline,
		LastSeenAt: time.Now().UTC(),
	})
}

func (s *presenceService) SetJoinedRoom(ctx context.Context, userID, roomID string) error {
	status, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	status.JoinedRoomID = roomID
	if status.State == "" {
		status.State = PresenceOffline
	}

	return s.set(ctx, userID, status)
}

func (s *presenceService) set(ctx context.Context, userID string, status PresenceStatus) error {
	if s.redis == nil {
		return nil
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, presenceKeyPrefix+userID, payload, s.ttl).Err()
}
