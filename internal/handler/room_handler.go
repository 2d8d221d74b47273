package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/middleware"
	"github.com/chattr-app/chattr-go-api/internal/service"
	"github.com/chattr-app/chattr-go-api/internal/utils"
)

// RoomHandler handles room lifecycle and membership endpoints.
type RoomHandler struct {
	service   service.RoomService
	pageLimit int
	logger    zerolog.Logger
}

// NewRoomHandler constructs the handler. pageLimit is the page size applied
// when the client does not send one.
func NewRoomHandler(service service.RoomService, pageLimit int, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		service:   service,
		pageLimit: pageLimit,
		logger:    logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register wires room routes under the provided router group.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Post("/private", h.createPrivate)
	router.Post("/group", h.createGroup)
	router.Get("", h.list)
	router.Get("/:roomId", h.get)
	router.Get("/:roomId/users", h.roster)
	router.Post("/:roomId/invite", h.invite)
	router.Post("/:roomId/join", h.join)
	router.Post("/:roomId/leave", h.leave)
	router.Delete("/:roomId", h.leave)
}

func (h *RoomHandler) createPrivate(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CreatePrivateRoomRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.CreatePrivateRoom(c.Context(), callerID, payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to create private room")
	}

	return utils.SendSuccess(c, "private room ready", room)
}

func (h *RoomHandler) createGroup(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CreateGroupRoomRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.CreateGroupRoom(c.Context(), callerID, payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to create group room")
	}

	return utils.SendSuccess(c, "group room created", room)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	pageLimit, err := parseQueryInt(c, "page_limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_limit")
	}
	if pageLimit <= 0 {
		pageLimit = h.pageLimit
	}
	afterUpdatedAt, err := parseQueryInt64(c, "after_updated_at")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid after_updated_at")
	}

	query := dto.RoomsQuery{
		PageLimit:      pageLimit,
		AfterRoomID:    c.Query("after_room_id"),
		AfterUpdatedAt: afterUpdatedAt,
	}

	rooms, err := h.service.GetRooms(c.Context(), callerID, query)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to list rooms")
	}

	return utils.SendSuccess(c, "rooms retrieved", rooms)
}

func (h *RoomHandler) get(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	room, err := h.service.GetRoom(c.Context(), c.Params("roomId"))
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to load room")
	}

	return utils.SendSuccess(c, "room retrieved", room)
}

func (h *RoomHandler) roster(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	users, err := h.service.GetRoomUsers(c.Context(), c.Params("roomId"))
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to load room members")
	}

	return utils.SendSuccess(c, "room members retrieved", users)
}

func (h *RoomHandler) invite(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.InviteRoomRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.InviteGroupRoom(c.Context(), callerID, c.Params("roomId"), payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to invite user")
	}

	return utils.SendSuccess(c, "user invited", room)
}

func (h *RoomHandler) join(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.JoinRoom(c.Context(), callerID, c.Params("roomId")); err != nil {
		return sendServiceError(h.logger, c, err, "failed to join room")
	}

	return utils.SendSuccess(c, "room joined", nil)
}

func (h *RoomHandler) leave(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.LeaveGroupRoom(c.Context(), callerID, c.Params("roomId")); err != nil {
		return sendServiceError(h.logger, c, err, "failed to leave room")
	}

	return utils.SendSuccess(c, "room left", nil)
}
