package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds defaults read from the environment. Flags given on the
// command line take precedence.
type Config struct {
	DB      string `env:"KEYCORE_DB"`
	Format  string `env:"KEYCORE_FORMAT"  envDefault:"text"`
	Verbose bool   `env:"KEYCORE_VERBOSE"`
}

// LoadConfig parses KEYCORE_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{Format: "text"}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	return cfg, nil
}
