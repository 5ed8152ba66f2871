// Package config loads process configuration from a .env file and the
// environment.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keshon/server-warden/internal/host"
)

// WebUI configures the admin web server.
type WebUI struct {
	Enabled   bool   `env:"ENABLED" envDefault:"true"`
	SecretKey string `env:"SECRET_KEY" envDefault:"PermissionManager"`
	Host      string `env:"HOST" envDefault:"0.0.0.0"`
	Port      int    `env:"PORT" envDefault:"8888"`
}

// Config is the full configuration surface.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	WebUI WebUI `envPrefix:"WEBUI_"`

	CommandEnabled        bool   `env:"COMMAND_ENABLED" envDefault:"true"`
	DefaultPermission     string `env:"DEFAULT_PERMISSION" envDefault:"member"`
	AutoApplyOnLoad       bool   `env:"AUTO_APPLY_ON_LOAD" envDefault:"true"`
	BatchOperationConfirm bool   `env:"BATCH_OPERATION_CONFIRM" envDefault:"true"`
	LogPermissionChanges  bool   `env:"LOG_PERMISSION_CHANGES" envDefault:"false"`

	ApplyInterval time.Duration `env:"APPLY_INTERVAL" envDefault:"30s"`
	CheckInterval time.Duration `env:"CHECK_INTERVAL" envDefault:"2s"`
}

// New loads configuration, falling back to system environment variables when
// no .env file is present.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if _, ok := host.ParseTier(cfg.DefaultPermission); !ok {
		return nil, fmt.Errorf("DEFAULT_PERMISSION must be admin or member, got %q", cfg.DefaultPermission)
	}
	if cfg.WebUI.Port <= 0 || cfg.WebUI.Port > 65535 {
		return nil, fmt.Errorf("WEBUI_PORT out of range: %d", cfg.WebUI.Port)
	}

	return cfg, nil
}

// DefaultTier returns the validated default permission tier.
func (c *Config) DefaultTier() host.Tier {
	tier, _ := host.ParseTier(c.DefaultPermission)
	return tier
}
