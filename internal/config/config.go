package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	DatabaseURL string `validate:"required"`
	AutoMigrate bool

	PayMongoSecretKey     string
	PayMongoWebhookSecret string
	PayMongoBaseURL       string        `validate:"required,url"`
	PayMongoTimeout       time.Duration `validate:"gt=0"`

	CORSAllowedOrigins []string `validate:"min=1"`

	AutoCompleteAfter    time.Duration `validate:"gt=0"`
	AutoCompleteSchedule string        `validate:"required"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
}

var validate = validator.New()

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	timeout, err := durationEnv("PAYMONGO_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	after, err := durationEnv("AUTO_COMPLETE_AFTER", 72*time.Hour)
	if err != nil {
		return nil, err
	}
	migrate, err := boolEnv("AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                  env("PORT", "8080"),
		DatabaseURL:           databaseURL(),
		AutoMigrate:           migrate,
		PayMongoSecretKey:     os.Getenv("PAYMONGO_SECRET_KEY"),
		PayMongoWebhookSecret: os.Getenv("PAYMONGO_WEBHOOK_SECRET"),
		PayMongoBaseURL:       strings.TrimRight(env("PAYMONGO_BASE_URL", "https://api.paymongo.com/v1"), "/"),
		PayMongoTimeout:       timeout,
		CORSAllowedOrigins:    splitList(env("CORS_ALLOWED_ORIGINS", "*")),
		AutoCompleteAfter:     after,
		AutoCompleteSchedule:  env("AUTO_COMPLETE_SCHEDULE", "@every 1h"),
		LogLevel:              strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(env("LOG_FORMAT", "json")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// databaseURL prefers DATABASE_URL and falls back to the BLUEPRINT_DB_* set.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("BLUEPRINT_DB_HOST")
	if host == "" {
		return ""
	}
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("BLUEPRINT_DB_USERNAME"),
		os.Getenv("BLUEPRINT_DB_PASSWORD"),
		host,
		env("BLUEPRINT_DB_PORT", "5432"),
		os.Getenv("BLUEPRINT_DB_DATABASE"),
	)
	if schema := os.Getenv("BLUEPRINT_DB_SCHEMA"); schema != "" {
		connStr += "&search_path=" + schema
	}
	return connStr
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
