package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  public_origin: https://quiz.example.com
log:
  level: debug
redis:
  addr: localhost:6379
  lock_ttl: 3s
quiz:
  enforce_deadline: true
  deadline_grace: 45s
leaderboard:
  refresh_interval: 2s
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.PublicOrigin != "https://quiz.example.com" {
		t.Fatalf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" || cfg.Redis.Addr != "localhost:6379" || !cfg.Quiz.EnforceDeadline {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := TTLDuration(cfg.Redis.LockTTL, time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s lock ttl, got %v", got)
	}
	if got := TTLDuration(cfg.Leaderboard.RefreshInterval, 5*time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s refresh, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := Load(path, false); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("expected defaults for missing default config: %v", err)
	}
	if cfg.Server.Port != "" || cfg.Postgres.URL != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
