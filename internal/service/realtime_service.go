package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/observability"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

const realtimeSendBufferSize = 32

// RealtimeConnectionOptions wraps metadata extracted during the HTTP upgrade.
type RealtimeConnectionOptions struct {
	UserID        string
	CorrelationID string
	Context       context.Context
}

// RealtimeService manages websocket connections and delivers stored messages
// to connected room members, across nodes via Redis pub/sub and NATS.
type RealtimeService interface {
	RealtimeBroadcaster
	ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions)
	Start(ctx context.Context)
}

type realtimeService struct {
	rooms       repository.RoomRepository
	presence    PresenceService
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *realtimeHub
	nodeID      string
}

// realtimeHub tracks active connections per user. A user may hold several,
// one per device.
type realtimeHub struct {
	mu    sync.RWMutex
	users map[string]map[*realtimeClient]struct{}
	log   zerolog.Logger
}

type realtimeClient struct {
	conn    *websocket.Conn
	send    chan dto.MessageResponse
	options RealtimeConnectionOptions
	service *realtimeService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

// realtimeClientEvent is what a connected client may write: joining a room
// marks it as the one currently on screen, leaving clears it.
type realtimeClientEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

type realtimeEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewRealtimeService creates a websocket delivery service instance.
func NewRealtimeService(rooms repository.RoomRepository, presence PresenceService, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RealtimeService {
	hub := &realtimeHub{
		users: make(map[string]map[*realtimeClient]struct{}),
		log:   logger.With().Str("component", "realtime_hub").Logger(),
	}

	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":messages"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &realtimeService{
		rooms:       rooms,
		presence:    presence,
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "realtime_service").Logger(),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &realtimeClient{
		conn:    conn,
		send:    make(chan dto.MessageResponse, realtimeSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.RealtimeClientsActive().Inc()

	if s.presence != nil {
		if err := s.presence.MarkOnline(baseCtx, opts.UserID, ""); err != nil {
			s.logger.Warn().Err(err).Str("user_id", opts.UserID).Msg("failed to mark user online")
		}
	}

	go client.writer()
	client.reader()
}

// BroadcastMessage delivers a stored message to every connected member of
// its room, then publishes the event so other nodes do the same.
func (s *realtimeService) BroadcastMessage(ctx context.Context, message dto.MessageResponse) {
	s.deliverLocal(ctx, message)
	if err := s.publish(ctx, message); err != nil {
		s.logger.Warn().Err(err).Str("room_id", message.RoomID).Msg("failed to publish realtime event")
	}
}

func (s *realtimeService) deliverLocal(ctx context.Context, message dto.MessageResponse) {
	room, err := s.rooms.FindByRoomID(ctx, message.RoomID)
	if err != nil {
		s.logger.Warn().Err(err).Str("room_id", message.RoomID).Msg("failed to resolve room for realtime delivery")
		return
	}

	for _, memberID := range room.MemberIDs {
		s.hub.send(memberID, message)
	}
}

func (s *realtimeService) publish(ctx context.Context, message dto.MessageResponse) error {
	event := realtimeEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *realtimeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handleEvent(ctx, []byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "chattr-realtime", func(msg *nats.Msg) {
		s.handleEvent(ctx, msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats realtime subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
		}
	}()
}

func (s *realtimeService) handleEvent(ctx context.Context, data []byte) {
	var event realtimeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid realtime event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.deliverLocal(ctx, event.Message)
}

func (h *realtimeHub) register(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.options.UserID
	if _, exists := h.users[userID]; !exists {
		h.users[userID] = make(map[*realtimeClient]struct{})
	}
	h.users[userID][client] = struct{}{}
	h.log.Debug().Str("user_id", userID).Msg("realtime client connected")
}

// unregister reports whether this was the user's last open connection.
func (h *realtimeHub) unregister(client *realtimeClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.options.UserID
	if clients, ok := h.users[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.users, userID)
		}
	}
	h.log.Debug().Str("user_id", userID).Msg("realtime client disconnected")
	return len(h.users[userID]) == 0
}

func (h *realtimeHub) send(userID string, message dto.MessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.users[userID]
	for client := range clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn().Str("user_id", userID).Msg("dropping realtime message for slow client")
		}
	}
}

func (c *realtimeClient) reader() {
	defer c.close()

	connCtx := c.baseCtx

	for {
		var event realtimeClientEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			c.service.logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}

		c.handleClientEvent(connCtx, event)
	}
}

func (c *realtimeClient) handleClientEvent(ctx context.Context, event realtimeClientEvent) {
	if c.service.presence == nil {
		return
	}

	switch event.Type {
	case "join":
		if err := c.service.presence.SetJoinedRoom(ctx, c.options.UserID, event.RoomID); err != nil {
			c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to record joined room")
		}
	case "leave":
		if err := c.service.presence.SetJoinedRoom(ctx, c.options.UserID, ""); err != nil {
			c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to clear joined room")
		}
	case "heartbeat":
		status, err := c.service.presence.Get(ctx, c.options.UserID)
		if err != nil {
			c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to read presence for heartbeat")
			return
		}
		if err := c.service.presence.MarkOnline(ctx, c.options.UserID, status.JoinedRoomID); err != nil {
			c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to refresh presence")
		}
	}
}

func (c *realtimeClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *realtimeClient) close() {
	c.once.Do(func() {
		close(c.closed)
		last := c.service.hub.unregister(c)
		observability.RealtimeClientsActive().Dec()
		if last && c.service.presence != nil {
			if err := c.service.presence.MarkOffline(c.baseCtx, c.options.UserID); err != nil {
				c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to mark user offline")
			}
		}
		_ = c.conn.Close()
	})
}
