package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseURL       string `env:"TURSO_DATABASE_URL,required"`
	DatabaseAuthToken string `env:"TURSO_AUTH_TOKEN"`

	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	TelegramStaffChatID int64  `env:"TELEGRAM_STAFF_CHAT_ID"`

	AuthURL     string `env:"AUTH_URL"`
	AuthAnonKey string `env:"AUTH_ANON_KEY"`

	StorageURL    string `env:"STORAGE_URL"`
	StorageBucket string `env:"STORAGE_BUCKET" envDefault:"comprobantes"`

	// Break-glass BasicAuth password for the admin API. Empty disables it.
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Fixed offset used to bucket daily statistics (Venezuela is UTC-4).
	StatsUTCOffsetHours int `env:"STATS_UTC_OFFSET_HOURS" envDefault:"-4"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
