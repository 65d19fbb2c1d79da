// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL   string        `env:"MENAGERIE_DATABASE_URL"   envDefault:"sqlite://menagerie.db"`
	SaveSlot      string        `env:"MENAGERIE_SAVE_SLOT"      envDefault:"default"`
	AutosaveDelay time.Duration `env:"MENAGERIE_AUTOSAVE_DELAY" envDefault:"500ms"`
	TickInterval  time.Duration `env:"MENAGERIE_TICK_INTERVAL"  envDefault:"16ms"`
	CatalogPath   string        `env:"MENAGERIE_CATALOG_PATH"`
	APIHost       string        `env:"MENAGERIE_API_HOST"       envDefault:"127.0.0.1"`
	APIPort       int           `env:"MENAGERIE_API_PORT"       envDefault:"8080"`
	// APIAllowedOrigins lists browser origins allowed to call the API.
	APIAllowedOrigins []string `env:"MENAGERIE_API_ALLOWED_ORIGINS" envSeparator:","`
	// DevMode makes the reducer panic on unknown actions.
	DevMode bool `env:"MENAGERIE_DEV_MODE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the configuration from the environment with defaults applied.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SaveSlot == "" {
		return fmt.Errorf("save slot is required")
	}
	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("autosave delay must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("api port %d out of range", c.APIPort)
	}
	for _, origin := range c.APIAllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid allowed origin %q", origin)
		}
	}
	return nil
}
