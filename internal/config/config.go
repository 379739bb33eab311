package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	LogLevel    string
	LogFormat   string

	// Consumer tuning
	PersistMaxAttempts   int
	PersistBackoff       time.Duration
	QueueKey             string
	DeadLetterKey        string
	BroadcastChannel     string

	// Stream tuning
	MaxClientsPerStream int
	HeartbeatInterval   time.Duration

	// Producer tuning
	VoteDebounceWindow time.Duration
	VoteRatePerMinute  int
}

func Load() (*Config, error) {
	// Best effort: a missing .env file is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		QueueKey:         getEnv("VOTE_QUEUE_KEY", "votes"),
		DeadLetterKey:    getEnv("VOTE_DEAD_LETTER_KEY", "votes:dead"),
		BroadcastChannel: getEnv("VOTE_BROADCAST_CHANNEL", "vote_updates"),
	}

	var err error
	if cfg.PersistMaxAttempts, err = getEnvInt("PERSIST_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.PersistBackoff, err = getEnvDuration("PERSIST_BACKOFF", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerStream, err = getEnvInt("MAX_CLIENTS_PER_STREAM", 256); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = getEnvDuration("HEARTBEAT_INTERVAL", 25*time.Second); err != nil {
		return nil, err
	}
	if cfg.VoteDebounceWindow, err = getEnvDuration("VOTE_DEBOUNCE_WINDOW", 1*time.Second); err != nil {
		return nil, err
	}
	if cfg.VoteRatePerMinute, err = getEnvInt("VOTE_RATE_PER_MINUTE", 60); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if cfg.PersistMaxAttempts < 1 {
		return nil, fmt.Errorf("PERSIST_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.MaxClientsPerStream < 1 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_STREAM must be at least 1")
	}
	if cfg.QueueKey == cfg.DeadLetterKey {
		return nil, fmt.Errorf("VOTE_QUEUE_KEY and VOTE_DEAD_LETTER_KEY must differ")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 200ms or 25s: %w", key, err)
	}
	return value, nil
}
