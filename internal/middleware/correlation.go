package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type correlationIDKey struct{}

var correlationKey = correlationIDKey{}

// Headers accepted as an incoming correlation id, in preference order. Chat
// clients send X-Correlation-ID; proxies commonly inject X-Request-ID.
var correlationHeaders = []string{"X-Correlation-ID", "X-Request-ID"}

// CorrelationID ensures every request carries a correlation identifier so a
// send can be traced from the HTTP call through fanout and realtime delivery.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		for _, header := range correlationHeaders {
			if id = strings.TrimSpace(c.Get(header)); id != "" {
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(context.WithValue(c.Context(), correlationKey, id))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.Context())
}

// ContextWithCorrelation attaches the correlation identifier to a detached
// context, keeping side-effect goroutines traceable to the request.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}
