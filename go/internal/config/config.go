// Package config loads process configuration from the environment and an
// optional YAML file of game settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrInvalidSettings  = errors.New("invalid game settings")
)

const (
	TransportDirect = "direct"
	TransportNATS   = "nats"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// APIHost enables the uptime self-ping when set, e.g. https://game.example.com
	APIHost        string        `env:"API_HOST"`
	UptimeInterval time.Duration `env:"UPTIME_INTERVAL" envDefault:"60s"`

	EventTransport string `env:"EVENT_TRANSPORT" envDefault:"direct"`
	NATSURL        string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	GameSettingsFile string       `env:"GAME_SETTINGS_FILE"`
	Game             GameSettings `envPrefix:"GAME_"`
}

// GameSettings are the round rules. Env values (GAME_*) override the file.
type GameSettings struct {
	MinNumber          int           `yaml:"min_number" env:"MIN_NUMBER"`
	MaxNumber          int           `yaml:"max_number" env:"MAX_NUMBER"`
	SessionDuration    time.Duration `yaml:"session_duration" env:"SESSION_DURATION"`
	GapBetweenSessions time.Duration `yaml:"gap_between_sessions" env:"GAP_BETWEEN_SESSIONS"`
	WinScore           int           `yaml:"win_score" env:"WIN_SCORE"`
	RecordTimeout      time.Duration `yaml:"record_timeout" env:"RECORD_TIMEOUT"`
}

func DefaultGameSettings() GameSettings {
	return GameSettings{
		MinNumber:          1,
		MaxNumber:          10,
		SessionDuration:    20 * time.Second,
		GapBetweenSessions: 30 * time.Second,
		WinScore:           10,
		RecordTimeout:      5 * time.Second,
	}
}

// Load builds the configuration: defaults, then the settings file, then env.
func Load() (*Config, error) {
	cfg := &Config{Game: DefaultGameSettings()}

	path := os.Getenv("GAME_SETTINGS_FILE")
	if path != "" {
		if err := loadGameSettingsFile(path, &cfg.Game); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadGameSettingsFile(path string, into *GameSettings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read game settings file: %w", err)
	}
	var wrapper struct {
		Game GameSettings `yaml:"game"`
	}
	wrapper.Game = *into
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("failed to parse game settings file: %w", err)
	}
	*into = wrapper.Game
	return nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.EventTransport != TransportDirect && c.EventTransport != TransportNATS {
		return fmt.Errorf("EVENT_TRANSPORT must be %q or %q, got %q", TransportDirect, TransportNATS, c.EventTransport)
	}
	return c.Game.Validate()
}

func (g GameSettings) Validate() error {
	switch {
	case g.MinNumber > g.MaxNumber:
		return fmt.Errorf("%w: min_number %d is above max_number %d", ErrInvalidSettings, g.MinNumber, g.MaxNumber)
	case g.SessionDuration <= 0:
		return fmt.Errorf("%w: session_duration must be positive", ErrInvalidSettings)
	case g.GapBetweenSessions <= 0:
		return fmt.Errorf("%w: gap_between_sessions must be positive", ErrInvalidSettings)
	case g.WinScore <= 0:
		return fmt.Errorf("%w: win_score must be positive", ErrInvalidSettings)
	case g.RecordTimeout <= 0:
		return fmt.Errorf("%w: record_timeout must be positive", ErrInvalidSettings)
	}
	return nil
}
