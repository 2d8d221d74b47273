package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chattr-app/chattr-go-api/internal/config"
	"github.com/chattr-app/chattr-go-api/internal/handler"
	"github.com/chattr-app/chattr-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler     *handler.UserHandler
	RoomHandler     *handler.RoomHandler
	MessageHandler  *handler.MessageHandler
	RealtimeHandler *handler.RealtimeHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.RoomHandler != nil {
		rooms := api.Group("/rooms", jwtMiddleware)
		deps.RoomHandler.Register(rooms)

		if deps.MessageHandler != nil {
			messages := rooms.Group("/:roomId/messages")
			deps.MessageHandler.Register(messages)
		}
	}

	if deps.RealtimeHandler != nil {
		realtime := api.Group("/realtime", jwtMiddleware)
		deps.RealtimeHandler.Register(realtime)
	}
}
