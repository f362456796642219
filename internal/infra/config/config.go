package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverFile     = "file"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StoreDriver          string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL          string `env:"DATABASE_URL"`
	DataFile             string `env:"DATA_FILE" envDefault:"data/members.json"`
	HTTPAddr             string `env:"HTTP_ADDR" envDefault:":8080"`
	CronSecret           string `env:"CRON_SECRET"`
	CronSpecStatusUpdate string `env:"CRON_SPEC_STATUS_UPDATE" envDefault:"0 1 * * *"` // 01:00 daily
	Timezone             string `env:"TIMEZONE" envDefault:"Local"`
	TelegramToken        string `env:"TELEGRAM_TOKEN"` // bot disabled when empty
	AdminTelegramID      int64  `env:"ADMIN_TELEGRAM_ID"`
	ManagerTelegramID    int64  `env:"MANAGER_TELEGRAM_ID"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	Environment          string `env:"ENVIRONMENT" envDefault:"development"`
	LogFile              string `env:"LOG_FILE"`
	LogMaxSizeMB         int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups        int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays        int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	location *time.Location
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables already set in the environment.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StoreDriverFile:
		if cfg.DataFile == "" {
			return nil, fmt.Errorf("DATA_FILE is not set")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: expected %q or %q", cfg.StoreDriver, StoreDriverPostgres, StoreDriverFile)
	}

	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

// Location is the time zone used for the cron schedule and for "now".
func (c *AppConfig) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Now returns the current time in the configured time zone.
func (c *AppConfig) Now() time.Time {
	return time.Now().In(c.Location())
}

// TelegramEnabled reports whether the bot should be started.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
