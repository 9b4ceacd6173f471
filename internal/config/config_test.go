package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "MATCH_WEBHOOK_URL",
		"MAX_CONNECTIONS", "MATCHMAKING_TICK_MS", "MATCHMAKING_MAX_WAIT_SEC",
		"SESSION_OUTBOUND_CAPACITY", "CLOCK_TICK_MS", "CLOCK_INITIAL_SEC",
		"CLOCK_INCREMENT_SEC",
	} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.MatchmakingTick != 500*time.Millisecond {
		t.Fatalf("matchmaking tick = %v", cfg.MatchmakingTick)
	}
	if cfg.SessionOutboundCapacity != 64 {
		t.Fatalf("outbound capacity = %d", cfg.SessionOutboundCapacity)
	}
	if cfg.ClockTick != time.Second {
		t.Fatalf("clock tick = %v", cfg.ClockTick)
	}
	if cfg.ClockEnabled() {
		t.Fatalf("clock should be disabled by default")
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MATCHMAKING_TICK_MS", "250")
	t.Setenv("CLOCK_INITIAL_SEC", "300")
	t.Setenv("CLOCK_INCREMENT_SEC", "2")
	t.Setenv("MAX_CONNECTIONS", "16")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.MaxConnections != 16 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MatchmakingTick != 250*time.Millisecond {
		t.Fatalf("tick = %v", cfg.MatchmakingTick)
	}
	if !cfg.ClockEnabled() || cfg.ClockInitial != 5*time.Minute || cfg.ClockIncrement != 2*time.Second {
		t.Fatalf("clock = %v/%v", cfg.ClockInitial, cfg.ClockIncrement)
	}
}

func TestBadPortFails(t *testing.T) {
	t.Setenv("PORT", "notaport")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid PORT")
	}
}
