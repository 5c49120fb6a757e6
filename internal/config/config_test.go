package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.HoldTTL() != 3*time.Minute {
		t.Fatalf("expected 3m hold TTL, got %v", cfg.HoldTTL())
	}
	if cfg.ConfirmedTTL() != 15*time.Minute {
		t.Fatalf("expected 15m confirmed TTL, got %v", cfg.ConfirmedTTL())
	}
	if cfg.LockTTL() != 5*time.Minute {
		t.Fatalf("expected 5m lock TTL, got %v", cfg.LockTTL())
	}
	if cfg.AutoConvertAfter() != 48*time.Hour {
		t.Fatalf("expected 48h auto-convert, got %v", cfg.AutoConvertAfter())
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected empty redis addr, got %q", cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HOLD_TTL_MIN", "10")
	t.Setenv("CORS_ORIGINS", "https://lapacasahostel.com,https://admin.lapacasahostel.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Addr())
	}
	if cfg.HoldTTL() != 10*time.Minute {
		t.Fatalf("expected 10m hold TTL, got %v", cfg.HoldTTL())
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
