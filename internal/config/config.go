package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	JWTSecret         string
	GradebookCacheTTL time.Duration
	EventChannel      string
	AutoZeroFeedback  string
	BulkRateLimit     int
	BulkRateWindow    time.Duration
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
	v.SetEnvPrefix("GRADING")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("gradebook.cache_ttl", "30s")
	v.SetDefault("events.channel", "grading:events")
	v.SetDefault("bulk.rate_limit", 5)
	v.SetDefault("bulk.rate_window", "1m")

	ttl, err := parseDuration(v.GetString("gradebook.cache_ttl"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid gradebook cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("bulk.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid bulk rate window: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		GradebookCacheTTL: ttl,
		EventChannel:      v.GetString("events.channel"),
		AutoZeroFeedback:  strings.TrimSpace(v.GetString("auto_zero.feedback")),
		BulkRateLimit:     v.GetInt("bulk.rate_limit"),
		BulkRateWindow:    window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.BulkRateLimit <= 0 {
		cfg.BulkRateLimit = 5
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
