package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "SLOT_CAPACITY", "DAY_CAPACITY", "SLOT_STEP_MINUTES", "CORS_ALLOWED_ORIGINS", "BOOKING_RETRY_BASE_DELAY"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SlotCapacity != 5 || cfg.DayCapacity != 15 {
		t.Fatalf("expected capacity 5/15, got %d/%d", cfg.SlotCapacity, cfg.DayCapacity)
	}
	if cfg.SlotStepMinutes != 30 {
		t.Fatalf("expected 30 minute step, got %d", cfg.SlotStepMinutes)
	}
	if cfg.BookingRetryBaseDelay != 25*time.Millisecond {
		t.Fatalf("expected default retry delay, got %s", cfg.BookingRetryBaseDelay)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SLOT_CAPACITY", "3")
	t.Setenv("DAY_CAPACITY", "9")
	t.Setenv("BOOKING_MAX_ATTEMPTS", "5")
	t.Setenv("BOOKING_LOCK_TTL", "2s")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SlotCapacity != 3 || cfg.DayCapacity != 9 {
		t.Fatalf("expected capacity overrides, got %d/%d", cfg.SlotCapacity, cfg.DayCapacity)
	}
	if cfg.BookingMaxAttempts != 5 {
		t.Fatalf("expected attempts override, got %d", cfg.BookingMaxAttempts)
	}
	if cfg.BookingLockTTL != 2*time.Second {
		t.Fatalf("expected lock ttl override, got %s", cfg.BookingLockTTL)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SLOT_CAPACITY", "lots")
	t.Setenv("AVAILABILITY_CACHE_TTL", "soon")
	cfg := Load()
	if cfg.SlotCapacity != 5 {
		t.Fatalf("expected fallback capacity, got %d", cfg.SlotCapacity)
	}
	if cfg.AvailabilityCacheTTL != time.Minute {
		t.Fatalf("expected fallback ttl, got %s", cfg.AvailabilityCacheTTL)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{ClinicTimezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	var nilCfg *Config
	if nilCfg.Location() != time.UTC {
		t.Fatalf("expected UTC for nil config")
	}
}
