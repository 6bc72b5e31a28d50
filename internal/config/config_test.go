package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICKER_AUTH_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address())
	}
	if cfg.Auth.AccessTTL != time.Hour {
		t.Fatalf("unexpected access ttl: %v", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.RefreshTTL != 168*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.Auth.RefreshTTL)
	}
	if cfg.Session.MaxPerUser != 5 {
		t.Fatalf("unexpected session cap: %d", cfg.Session.MaxPerUser)
	}
	if cfg.Session.ActivityTimeout != 2*time.Hour {
		t.Fatalf("unexpected activity timeout: %v", cfg.Session.ActivityTimeout)
	}
	if cfg.Session.CleanupInterval != 15*time.Minute {
		t.Fatalf("unexpected cleanup interval: %v", cfg.Session.CleanupInterval)
	}
	if cfg.Market.DefaultVolatility != 2.0 || cfg.Market.MaxChangePercent != 2.0 {
		t.Fatalf("unexpected market defaults: %+v", cfg.Market)
	}
	if !cfg.App.IsDevelopment() || cfg.App.IsProduction() {
		t.Fatalf("expected development environment by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TICKER_AUTH_SECRET", "test-secret")
	t.Setenv("TICKER_SERVER_PORT", "9090")
	t.Setenv("TICKER_MAX_SESSIONS_PER_USER", "2")
	t.Setenv("TICKER_ACCESS_TTL", "30m")
	t.Setenv("TICKER_APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port override ignored: %d", cfg.Server.Port)
	}
	if cfg.Session.MaxPerUser != 2 {
		t.Fatalf("session cap override ignored: %d", cfg.Session.MaxPerUser)
	}
	if cfg.Auth.AccessTTL != 30*time.Minute {
		t.Fatalf("access ttl override ignored: %v", cfg.Auth.AccessTTL)
	}
	if !cfg.App.IsProduction() {
		t.Fatalf("environment override ignored")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("TICKER_AUTH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without auth secret")
	}
}
