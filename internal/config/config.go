// Package config loads the arena server configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Port int

	// optional external sinks for completed-match records
	DatabaseURL     string
	RedisURL        string
	MatchWebhookURL string

	MaxConnections int

	MatchmakingTick    time.Duration
	MatchmakingMaxWait time.Duration

	SessionOutboundCapacity int

	ClockTick      time.Duration
	ClockInitial   time.Duration
	ClockIncrement time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                    3000,
		MaxConnections:          1024,
		MatchmakingTick:         500 * time.Millisecond,
		MatchmakingMaxWait:      5 * time.Minute,
		SessionOutboundCapacity: 64,
		ClockTick:               time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, errors.New("PORT must be a valid port number")
		}
		cfg.Port = n
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MatchWebhookURL = strings.TrimSpace(os.Getenv("MATCH_WEBHOOK_URL"))

	if v := strings.TrimSpace(os.Getenv("MAX_CONNECTIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConnections = n
		}
	}
	if d, ok := envMillis("MATCHMAKING_TICK_MS"); ok {
		cfg.MatchmakingTick = d
	}
	if v := strings.TrimSpace(os.Getenv("MATCHMAKING_MAX_WAIT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchmakingMaxWait = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_OUTBOUND_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionOutboundCapacity = n
		}
	}
	if d, ok := envMillis("CLOCK_TICK_MS"); ok {
		cfg.ClockTick = d
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_INITIAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClockInitial = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_INCREMENT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ClockIncrement = time.Duration(n) * time.Second
		}
	}

	return cfg, nil
}

// ClockEnabled reports whether new games carry a clock.
func (c *AppConfig) ClockEnabled() bool { return c.ClockInitial > 0 }

func envMillis(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}
