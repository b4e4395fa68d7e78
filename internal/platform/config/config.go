// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every variable, e.g. CREWAGING_HTTP_ADDR.
const EnvPrefix = "CREWAGING_"

// Clock modes.
const (
	ClockExternal = "external" // the host pushes UT over the API
	ClockScaled   = "scaled"   // UT derived from wall time
)

// Config holds all runtime settings.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"./data/crew_aging.db"`
	SaveSlot string `env:"SAVE_SLOT" envDefault:"default"`

	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"30s"`

	RedisURL  string `env:"REDIS_URL"` // empty disables freeze tracking
	FrozenKey string `env:"FROZEN_KEY" envDefault:"crewaging:frozen"`

	ClockMode    string  `env:"CLOCK_MODE" envDefault:"external"`
	ClockRate    float64 `env:"CLOCK_RATE" envDefault:"1"`
	ClockStartUT float64 `env:"CLOCK_START_UT" envDefault:"0"`

	Seed     uint64 `env:"SEED" envDefault:"0"` // 0 draws a seed at startup
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads envFile when it exists, then parses the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the parser cannot.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	switch c.ClockMode {
	case ClockExternal, ClockScaled:
	default:
		return fmt.Errorf("unsupported clock mode %q", c.ClockMode)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.SaveSlot == "" {
		return errors.New("save slot must not be empty")
	}
	return nil
}
