package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8000" || cfg.Game.BoardSize != 15 || cfg.Game.FuseDelay != 3*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9100"
game:
  board_size: 11
  fuse_delay: 2s
  join_countdown: 5s
auth:
  require_token: true
logging:
  level: debug
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9100" || cfg.Game.BoardSize != 11 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Game.FuseDelay != 2*time.Second || cfg.Game.JoinCountdown != 5*time.Second {
		t.Errorf("durations not parsed: %+v", cfg.Game)
	}
	if cfg.Game.ExplosionWindow != time.Second {
		t.Error("unset keys should keep their defaults")
	}
	if !cfg.Auth.RequireToken || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected auth/logging %+v %+v", cfg.Auth, cfg.Logging)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9100\"\n")
	t.Setenv("BOMBERMAN_ADDR", ":7000")
	t.Setenv("BOMBERMAN_BOARD_SIZE", "13")
	t.Setenv("BOMBERMAN_REQUIRE_TOKEN", "true")
	t.Setenv("BOMBERMAN_ALLOWED_ORIGINS", "a.example, b.example:9000,")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Game.BoardSize != 13 || !cfg.Auth.RequireToken {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if o := cfg.Server.AllowedOrigins; len(o) != 2 || o[0] != "a.example" || o[1] != "b.example:9000" {
		t.Errorf("unexpected allowed origins %v", o)
	}

	t.Setenv("BOMBERMAN_BOARD_SIZE", "big")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for a non-numeric board size")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "game: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"small board", func(c *Config) { c.Game.BoardSize = 3 }},
		{"one player", func(c *Config) { c.Game.MinPlayers = 1 }},
		{"max below min", func(c *Config) { c.Game.MaxPlayers = 1 }},
		{"no health", func(c *Config) { c.Game.StartHealth = 0 }},
		{"chance above one", func(c *Config) { c.Game.BreakableChance = 1.5 }},
		{"zero fuse", func(c *Config) { c.Game.FuseDelay = 0 }},
		{"zero tick", func(c *Config) { c.Game.CountdownTick = 0 }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LoggingConfig{Level: "debug", Development: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger(LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for an unknown level")
	}
}
