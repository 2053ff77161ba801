// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL,required,notEmpty"`
	ListenAddr       string        `env:"LISTEN_ADDR" envDefault:":5200"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	GameServiceToken string        `env:"GAME_SERVICE_TOKEN,required,notEmpty"`
	CensusInterval   time.Duration `env:"CENSUS_INTERVAL" envDefault:"1m"`

	AccountServiceURL   string        `env:"ACCOUNT_SERVICE_URL"`
	AccountSyncPath     string        `env:"ACCOUNT_SYNC_PATH" envDefault:"/api/v1/public/players"`
	AccountSyncInterval time.Duration `env:"ACCOUNT_SYNC_INTERVAL" envDefault:"1m"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `env:"R2_BUCKET_NAME"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return &cfg, nil
}

// SyncEnabled reports whether players are mirrored from an account service.
func (c *Config) SyncEnabled() bool {
	return c.AccountServiceURL != ""
}

// ArchiveEnabled reports whether finished matches are uploaded to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2Bucket != ""
}
