package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/middleware"
	"github.com/chattr-app/chattr-go-api/internal/service"
	"github.com/chattr-app/chattr-go-api/internal/utils"
)

// UserHandler handles account registration and profile endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires user routes under the provided router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Post("", h.register)
	router.Get("/me", h.profile)
	router.Patch("/me", h.modify)
	router.Delete("/me", h.leave)
	router.Get("/:userId", h.profileByID)
}

func (h *UserHandler) register(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.RegisterUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(c.Context(), callerID, payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to register user")
	}

	return utils.SendSuccess(c, "user registered", user)
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	user, err := h.service.GetProfile(c.Context(), callerID)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) profileByID(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	user, err := h.service.GetProfile(c.Context(), c.Params("userId"))
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) modify(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ModifyUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Modify(c.Context(), callerID, payload)
	if err != nil {
		return sendServiceError(h.logger, c, err, "failed to modify user")
	}

	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) leave(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)
	if callerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Leave(c.Context(), callerID); err != nil {
		return sendServiceError(h.logger, c, err, "failed to deactivate user")
	}

	return utils.SendSuccess(c, "user deactivated", nil)
}
