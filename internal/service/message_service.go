package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/observability"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

// RealtimeBroadcaster delivers a stored message to clients holding open
// realtime connections. Implemented by the realtime service; nil disables it.
type RealtimeBroadcaster interface {
	BroadcastMessage(ctx context.Context, message dto.MessageResponse)
}

// MessageService implements send, retrieval, edit, and delete. Message
// persistence is the only step the caller waits on: the room summary merge,
// push fanout, and realtime broadcast are all downstream of it.
type MessageService interface {
	SendMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error)
	SendPrivateMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error)
	SendGroupMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error)
	GetMessage(ctx context.Context, roomID, messageID string) (dto.MessageResponse, error)
	GetMessages(ctx context.Context, roomID string, query dto.MessagesQuery) ([]dto.MessageResponse, error)
	UpdateTextMessage(ctx context.Context, roomID, messageID string, payload dto.UpdateTextMessageRequest) error
	DeleteMessage(ctx context.Context, roomID, messageID string) error
}

type messageService struct {
	messages    repository.MessageRepository
	rooms       repository.RoomRepository
	users       repository.UserRepository
	pusher      PushService
	realtime    RealtimeBroadcaster
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	logger      zerolog.Logger
	pushTimeout time.Duration
}

// NewMessageService constructs a message service instance.
func NewMessageService(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	users repository.UserRepository,
	pusher PushService,
	realtime RealtimeBroadcaster,
	validate *validator.Validate,
	pushTimeout time.Duration,
	logger zerolog.Logger,
) MessageService {
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}

	return &messageService{
		messages:    messages,
		rooms:       rooms,
		users:       users,
		pusher:      pusher,
		realtime:    realtime,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/chattr-app/chattr-go-api/internal/service/message"),
		logger:      logger.With().Str("component", "message_service").Logger(),
		pushTimeout: pushTimeout,
	}
}

// SendMessage resolves the room and dispatches on its kind, so one route
// serves both private and group sends.
func (s *messageService) SendMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}

	if room.Kind == models.RoomKindGroup {
		return s.sendToRoom(ctx, room, models.MessageKindGroup, callerID, payload)
	}
	return s.sendToRoom(ctx, room, models.MessageKindPrivate, callerID, payload)
}

func (s *messageService) SendPrivateMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}
	if room.Kind != models.RoomKindPrivate {
		return dto.SendMessageResponse{}, ErrNotPrivateRoom
	}

	return s.sendToRoom(ctx, room, models.MessageKindPrivate, callerID, payload)
}

func (s *messageService) SendGroupMessage(ctx context.Context, callerID, roomID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}
	if room.Kind != models.RoomKindGroup {
		return dto.SendMessageResponse{}, ErrNotGroupRoom
	}

	return s.sendToRoom(ctx, room, models.MessageKindGroup, callerID, payload)
}

func (s *messageService) sendToRoom(ctx context.Context, room models.Room, kind, callerID string, payload dto.SendMessageRequest) (dto.SendMessageResponse, error) {
	if kind == models.MessageKindPrivate {
		// Private rooms have exactly two members, so the receiver is implied
		// and replies are not threaded.
		payload.ReceiverUserID = nil
		payload.ReplyMessageID = nil
	} else if payload.ReceiverUserID != nil && *payload.ReceiverUserID == callerID {
		return dto.SendMessageResponse{}, ErrSameUser
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SendMessageResponse{}, err
	}

	sender, err := s.users.FindByUserID(ctx, callerID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}
	if sender.HasLeft() {
		return dto.SendMessageResponse{}, ErrUserLeft
	}

	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.String("chat.room_id", room.RoomID),
		attribute.String("chat.sender_id", callerID),
		attribute.String("chat.kind", kind),
	))
	defer span.End()

	now := time.Now().UTC()
	message := models.Message{
		MessageID:      uuid.NewString(),
		RequestedID:    payload.RequestedID,
		RoomID:         room.RoomID,
		Kind:           kind,
		SenderID:       &sender.UserID,
		ReceiverID:     payload.ReceiverUserID,
		Text:           s.cleanText(payload.Text),
		ReplyMessageID: payload.ReplyMessageID,
		CreatedAt:      now,
	}
	if payload.Media != nil {
		message.Media = &models.MessageMedia{Type: payload.Media.Type, URI: payload.Media.URI}
	}

	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.SendMessageResponse{}, err
	}

	observability.MessagesSent().WithLabelValues(kind).Inc()

	// The summary merge is best-effort: a crash here leaves the message in
	// the log but the room preview one send behind, which the next send
	// repairs.
	s.updateRoomAfterSend(spanCtx, &room, sender.UserID, message)

	s.dispatchSideEffects(sender, room, message)

	return dto.SendMessageResponse{
		RoomID:      room.RoomID,
		RequestedID: message.RequestedID,
		MessageID:   message.MessageID,
		CreatedAt:   message.CreatedAt,
	}, nil
}

func (s *messageService) updateRoomAfterSend(ctx context.Context, room *models.Room, senderID string, message models.Message) {
	text := ""
	if message.Text != nil {
		text = *message.Text
	}

	room.LastMessage = &models.RoomLastMessage{
		Text:     text,
		SenderID: senderID,
		SentAt:   message.CreatedAt,
	}
	room.UpdatedAt = message.CreatedAt

	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int64{}
	}
	for _, memberID := range room.MemberIDs {
		if memberID != senderID {
			room.UnreadCount[memberID]++
		}
	}

	if err := s.rooms.Save(ctx, room); err != nil {
		s.logger.Warn().Err(err).Str("room_id", room.RoomID).Msg("failed to update room summary after send")
	}
}

// dispatchSideEffects hands fanout and realtime delivery to a detached task
// so the caller's response never waits on the push gateway.
func (s *messageService) dispatchSideEffects(sender models.User, room models.Room, message models.Message) {
	response := dto.NewMessageResponse(message)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()

		if s.realtime != nil {
			s.realtime.BroadcastMessage(ctx, response)
		}
		if s.pusher != nil {
			s.pusher.NotifyNewMessage(ctx, sender, room, message)
		}
	}()
}

func (s *messageService) GetMessage(ctx context.Context, roomID, messageID string) (dto.MessageResponse, error) {
	message, err := s.messages.FindByMessageID(ctx, roomID, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	return dto.NewMessageResponse(message), nil
}

func (s *messageService) GetMessages(ctx context.Context, roomID string, query dto.MessagesQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	var (
		messages []models.Message
		err      error
	)

	switch {
	case query.BeforeMessageID != "":
		messages, err = s.messages.ListByRoomBeforeMessage(ctx, roomID, query.BeforeMessageID, query.PageLimit)
	case query.BeforeCreatedAt > 0:
		before := time.UnixMilli(query.BeforeCreatedAt).UTC()
		messages, err = s.messages.ListByRoomBeforeCreatedAt(ctx, roomID, before, query.PageLimit)
	default:
		messages, err = s.messages.ListByRoom(ctx, roomID, query.PageLimit)
	}
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) UpdateTextMessage(ctx context.Context, roomID, messageID string, payload dto.UpdateTextMessageRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	message, err := s.messages.FindByMessageID(ctx, roomID, messageID)
	if err != nil {
		return err
	}

	text := s.cleanText(&payload.Text)
	now := time.Now().UTC()
	message.Text = text
	message.UpdatedAt = &now

	return s.messages.Save(ctx, &message)
}

// DeleteMessage blanks the text and stamps the deletion; the row stays in
// the log so pagination and reply references keep working.
func (s *messageService) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	message, err := s.messages.FindByMessageID(ctx, roomID, messageID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	message.Text = nil
	message.DeletedAt = &now

	return s.messages.Save(ctx, &message)
}

// cleanText sanitizes and normalizes: an empty or whitespace-only text is
// stored as NULL so "has text" checks stay unambiguous.
func (s *messageService) cleanText(text *string) *string {
	if text == nil {
		return nil
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(*text))
	if clean == "" {
		return nil
	}

	return &clean
}
