// Package config loads tool configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-provided settings. In GitHub Actions,
// GITHUB_SHA is set to the commit that triggered the workflow.
type Config struct {
	CommitSHA string `env:"GITHUB_SHA"`
	IndexURL  string `env:"AUTORELEASE_INDEX_URL" envDefault:"https://index.crates.io"`
	GhExe     string `env:"AUTORELEASE_GH_EXE" envDefault:"gh"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
