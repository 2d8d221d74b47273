package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/i18n"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/observability"
	"github.com/chattr-app/chattr-go-api/internal/repository"
	"github.com/chattr-app/chattr-go-api/pkg/push"
)

// PushService fans a stored message out to room members as push
// notifications. It is strictly a side effect: every failure here is logged
// and swallowed, never surfaced to the send that triggered it.
type PushService interface {
	NotifyNewMessage(ctx context.Context, sender models.User, room models.Room, message models.Message)
}

type pushService struct {
	gateway  push.Gateway
	users    repository.UserRepository
	presence PresenceService
	logger   zerolog.Logger
}

// NewPushService constructs a push fanout service. A nil gateway disables
// dispatch entirely, which is the development default.
func NewPushService(gateway push.Gateway, users repository.UserRepository, presence PresenceService, logger zerolog.Logger) PushService {
	return &pushService{
		gateway:  gateway,
		users:    users,
		presence: presence,
		logger:   logger.With().Str("component", "push_service").Logger(),
	}
}

func (s *pushService) NotifyNewMessage(ctx context.Context, sender models.User, room models.Room, message models.Message) {
	if s.gateway == nil {
		return
	}

	recipientIDs := make([]string, 0, len(room.MemberIDs))
	for _, memberID := range room.MemberIDs {
		if memberID != sender.UserID {
			recipientIDs = append(recipientIDs, memberID)
		}
	}
	if len(recipientIDs) == 0 {
		return
	}

	recipients, err := s.users.FindMany(ctx, recipientIDs)
	if err != nil {
		s.logger.Warn().Err(err).Str("room_id", room.RoomID).Msg("failed to load notification recipients")
		return
	}

	for _, recipient := range recipients {
		if recipient.HasLeft() {
			continue
		}
		s.notifyRecipient(ctx, sender, recipient, room, message)
	}
}

func (s *pushService) notifyRecipient(ctx context.Context, sender, recipient models.User, room models.Room, message models.Message) {
	status, err := s.presence.Get(ctx, recipient.UserID)
	if err != nil {
		// Treat an unreadable presence record as offline: notifying twice
		// beats notifying never.
		s.logger.Warn().Err(err).Str("user_id", recipient.UserID).Msg("presence lookup failed")
		status = PresenceStatus{State: PresenceOffline}
	}

	if status.Online() {
		observability.PushesDispatched().WithLabelValues("suppressed_online").Inc()
		return
	}

	if len(recipient.PushTokens) == 0 {
		observability.PushesDispatched().WithLabelValues("no_tokens").Inc()
		return
	}

	notification := push.Notification{
		Title: sender.Nickname,
		Sound: "default",
		Badge: "1",
	}

	if message.Media != nil {
		notification.BodyLocKey = i18n.MediaLocKey(message.Media)
		notification.Body = i18n.MediaPlaceholder(message.Media, recipient.Locale)
	} else if message.Text != nil {
		notification.Body = *message.Text
	}

	payload := push.Payload{
		Tokens:       []string(recipient.PushTokens),
		Notification: notification,
		Data: map[string]string{
			"roomId":             room.RoomID,
			"senderUserId":       sender.UserID,
			"senderUserNickname": sender.Nickname,
		},
	}

	results, err := s.gateway.Send(ctx, payload)
	if err != nil {
		observability.PushesDispatched().WithLabelValues("gateway_error").Inc()
		s.logger.Warn().Err(err).Str("user_id", recipient.UserID).Msg("push dispatch failed")
		return
	}

	observability.PushesDispatched().WithLabelValues("sent").Inc()

	s.pruneDeadTokens(ctx, recipient, results)
}

// pruneDeadTokens drops tokens the gateway reported as unregistered. This is
// best-effort housekeeping on a fire-and-forget path.
func (s *pushService) pruneDeadTokens(ctx context.Context, recipient models.User, results []push.Result) {
	dead := make(map[string]struct{})
	for _, result := range results {
		if result.Prunable() {
			dead[result.Token] = struct{}{}
		}
	}
	if len(dead) == 0 {
		return
	}

	kept := make([]string, 0, len(recipient.PushTokens))
	for _, token := range recipient.PushTokens {
		if _, gone := dead[token]; !gone {
			kept = append(kept, token)
		}
	}

	if err := s.users.UpdatePushTokens(ctx, recipient.UserID, kept); err != nil {
		s.logger.Warn().Err(err).Str("user_id", recipient.UserID).Msg("failed to prune dead push tokens")
		return
	}

	observability.PushTokensPruned().Add(float64(len(dead)))
	s.logger.Info().Str("user_id", recipient.UserID).Int("pruned", len(dead)).Msg("dead push tokens removed")
}
