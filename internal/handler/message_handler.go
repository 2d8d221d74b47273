package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/middleware"
	"github.com/chattr-app/chattr-go-api/internal/service"
	"github.com/chattr-app/chattr-go-api/internal/utils"
)

// MessageHandler handles message endpoints nested under a room.
type MessageHandler struct {
	service   service.MessageService
	pageLimit int
	logger    zerolog.Logger
}

// NewMessageHandler constructs the handler. pageLimit is the page size
// applied when the client does not send one.
func NewMessageHandler(service service.MessageService, pageLimit int, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service:   service,
		pageLimit: pageLimit,
		logger:    logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register wires message routes under the provided router group. The group is
// expected to be mounted at rooms/:roomId/messages.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Post("", h.send)
	router.Get("", h.list)
	router.Get("/:messageId", h.get)
	router.Patch("/:messageId", h.updateText)
	router.Delete("/:messageId", h.delete)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SendMessage(c.Context(), callerID, c.Params("roomId"), payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to send message")
	}

	return utils.SendSuccess(c, "message sent", result)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
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
	beforeCreatedAt, err := parseQueryInt64(c, "before_created_at")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid before_created_at")
	}

	query := dto.MessagesQuery{
		PageLimit:       pageLimit,
		BeforeMessageID: c.Query("before_message_id"),
		BeforeCreatedAt: beforeCreatedAt,
	}

	messages, err := h.service.GetMessages(c.Context(), c.Params("roomId"), query)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to list messages")
	}

	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *MessageHandler) get(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	message, err := h.service.GetMessage(c.Context(), c.Params("roomId"), c.Params("messageId"))
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to load message")
	}

	return utils.SendSuccess(c, "message retrieved", message)
}

func (h *MessageHandler) updateText(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.UpdateTextMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.UpdateTextMessage(c.Context(), c.Params("roomId"), c.Params("messageId"), payload); err != nil {
		return sendServiceError(h.logger, c, err, "failed to update message")
	}

	return utils.SendSuccess(c, "message updated", nil)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.DeleteMessage(c.Context(), c.Params("roomId"), c.Params("messageId")); err != nil {
		return sendServiceError(h.logger, c, err, "failed to delete message")
	}

	return utils.SendSuccess(c, "message deleted", nil)
}
