package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/chattr-app/chattr-go-api/internal/config"
	"github.com/chattr-app/chattr-go-api/internal/database"
	"github.com/chattr-app/chattr-go-api/internal/handler"
	"github.com/chattr-app/chattr-go-api/internal/middleware"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/repository"
	"github.com/chattr-app/chattr-go-api/internal/router"
	"github.com/chattr-app/chattr-go-api/internal/service"
	"github.com/chattr-app/chattr-go-api/pkg/push"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomMember{}, &models.Message{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, presence and cross-node fanout disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var pushGateway push.Gateway
	if cfg.PushGatewayURL != "" {
		client, err := push.New(push.Config{
			BaseURL: cfg.PushGatewayURL,
			APIKey:  cfg.PushGatewayKey,
			Timeout: cfg.PushTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create push gateway client: %v", err)
		}
		pushGateway = client
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	presenceService := service.NewPresenceService(redisClient, cfg.PresenceTTL, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	roomService := service.NewRoomService(roomRepo, userRepo, messageRepo, presenceService, validate, logger)
	pushService := service.NewPushService(pushGateway, userRepo, presenceService, logger)
	realtimeService := service.NewRealtimeService(roomRepo, presenceService, redisClient, "chattr", natsConn, logger)
	messageService := service.NewMessageService(messageRepo, roomRepo, userRepo, pushService, realtimeService, validate, cfg.PushTimeout, logger)

	userHandler := handler.NewUserHandler(userService, logger)
	roomHandler := handler.NewRoomHandler(roomService, cfg.RoomPageLimit, logger)
	messageHandler := handler.NewMessageHandler(messageService, cfg.MessagePageLimit, logger)
	realtimeHandler := handler.NewRealtimeHandler(realtimeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:     userHandler,
		RoomHandler:     roomHandler,
		MessageHandler:  messageHandler,
		RealtimeHandler: realtimeHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	realtimeService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
