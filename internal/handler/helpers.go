package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/middleware"
	"github.com/chattr-app/chattr-go-api/internal/service"
	"github.com/chattr-app/chattr-go-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryInt64(c *fiber.Ctx, key string) (int64, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps a service error onto the response envelope. Unmapped
// errors are logged and replaced with the fallback text so internals never
// leak to clients.
func sendServiceError(logger zerolog.Logger, c *fiber.Ctx, err error, fallback string) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, status, fallback)
	}
	return utils.SendError(c, status, err.Error())
}

// statusForError maps service sentinels and lookup misses onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case isValidationError(err),
		errors.Is(err, service.ErrSameUser),
		errors.Is(err, service.ErrNotGroupRoom),
		errors.Is(err, service.ErrNotPrivateRoom):
		return fiber.StatusBadRequest
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrAlreadyMember):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUserLeft):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
