package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the chat API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	PushGatewayURL   string
	PushGatewayKey   string
	PushTimeout      time.Duration
	PresenceTTL      time.Duration
	RoomPageLimit    int
	MessagePageLimit int
	DefaultLocale    string
	CORSOrigins      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHATTR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Chattr API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("push.timeout", "10s")
	v.SetDefault("presence.ttl", "5m")
	v.SetDefault("room.page_limit", 15)
	v.SetDefault("message.page_limit", 15)
	v.SetDefault("default.locale", "en-US")
	v.SetDefault("cors.origins", "*")

	pushTimeout, err := time.ParseDuration(v.GetString("push.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid push timeout: %w", err)
	}

	presenceTTL, err := time.ParseDuration(v.GetString("presence.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid presence ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		PushGatewayURL:   v.GetString("push.gateway_url"),
		PushGatewayKey:   v.GetString("push.gateway_key"),
		PushTimeout:      pushTimeout,
		PresenceTTL:      presenceTTL,
		RoomPageLimit:    v.GetInt("room.page_limit"),
		MessagePageLimit: v.GetInt("message.page_limit"),
		DefaultLocale:    v.GetString("default.locale"),
		CORSOrigins:      v.GetString("cors.origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RoomPageLimit <= 0 {
		cfg.RoomPageLimit = 15
	}

	if cfg.MessagePageLimit <= 0 {
		cfg.MessagePageLimit = 15
	}

	return cfg, nil
}
