package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	ClientDir      string   `yaml:"client_dir"` // "" disables static file serving
	MaxConnsPerIP  int      `yaml:"max_conns_per_ip"`
	MaxTotalConns  int      `yaml:"max_total_conns"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Origin hosts (host[:port]) allowed besides the serving host
}

// GameConfig holds the tunable rules of a session
type GameConfig struct {
	BoardSize       int           `yaml:"board_size"`
	MinPlayers      int           `yaml:"min_players"` // roster size that starts the join countdown
	MaxPlayers      int           `yaml:"max_players"` // roster size that skips straight to the start countdown
	StartHealth     int           `yaml:"start_health"`
	BreakableChance float64       `yaml:"breakable_chance"`
	PowerUpChance   float64       `yaml:"powerup_chance"`
	FuseDelay       time.Duration `yaml:"fuse_delay"`
	ExplosionWindow time.Duration `yaml:"explosion_window"`
	JoinCountdown   time.Duration `yaml:"join_countdown"`
	StartCountdown  time.Duration `yaml:"start_countdown"`
	CountdownTick   time.Duration `yaml:"countdown_tick"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"` // hex or plain; "" = load from DB or generate
	RequireToken      bool          `yaml:"require_token"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	AdminUser         string        `yaml:"admin_user"`
	AdminPasswordHash string        `yaml:"admin_password_hash"` // bcrypt hash; "" disables admin endpoints
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // "" keeps the event log disabled
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultGameConfig returns the standard arena rules
func DefaultGameConfig() GameConfig {
	return GameConfig{
		BoardSize:       15,
		MinPlayers:      2,
		MaxPlayers:      4,
		StartHealth:     3,
		BreakableChance: 0.4,
		PowerUpChance:   0.3,
		FuseDelay:       3 * time.Second,
		ExplosionWindow: time.Second,
		JoinCountdown:   20 * time.Second,
		StartCountdown:  10 * time.Second,
		CountdownTick:   time.Second,
	}
}

// DefaultConfig returns a configuration usable without any file or env
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8000",
			MaxConnsPerIP: 5,
			MaxTotalConns: 1000,
		},
		Game: DefaultGameConfig(),
		Auth: AuthConfig{
			TokenTTL:  7 * 24 * time.Hour,
			AdminUser: "admin",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig layers defaults, the optional YAML file at path, .env and
// BOMBERMAN_* environment variables
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("BOMBERMAN_ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_CLIENT_DIR"); ok {
		cfg.Server.ClientDir = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = nil
		for _, host := range strings.Split(v, ",") {
			if host = strings.TrimSpace(host); host != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, host)
			}
		}
	}
	if v, ok := os.LookupEnv("BOMBERMAN_DB"); ok {
		cfg.Database.Path = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_ADMIN_PASSWORD_HASH"); ok {
		cfg.Auth.AdminPasswordHash = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("BOMBERMAN_REQUIRE_TOKEN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOMBERMAN_REQUIRE_TOKEN: %w", err)
		}
		cfg.Auth.RequireToken = b
	}
	if v, ok := os.LookupEnv("BOMBERMAN_BOARD_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOMBERMAN_BOARD_SIZE: %w", err)
		}
		cfg.Game.BoardSize = n
	}
	return nil
}

// Validate rejects settings the engine cannot run with
func (c Config) Validate() error {
	g := c.Game
	switch {
	case g.BoardSize < 5:
		return errors.New("game.board_size must be at least 5")
	case g.MinPlayers < 2:
		return errors.New("game.min_players must be at least 2")
	case g.MaxPlayers < g.MinPlayers:
		return errors.New("game.max_players must not be below game.min_players")
	case g.StartHealth < 1:
		return errors.New("game.start_health must be positive")
	case g.BreakableChance < 0 || g.BreakableChance > 1:
		return errors.New("game.breakable_chance must be within [0,1]")
	case g.PowerUpChance < 0 || g.PowerUpChance > 1:
		return errors.New("game.powerup_chance must be within [0,1]")
	case g.FuseDelay <= 0 || g.ExplosionWindow <= 0:
		return errors.New("game.fuse_delay and game.explosion_window must be positive")
	case g.JoinCountdown <= 0 || g.StartCountdown <= 0 || g.CountdownTick <= 0:
		return errors.New("game countdown durations must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
