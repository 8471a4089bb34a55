package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration.
// Values come from the environment first and may be overridden by flags.
type Config struct {
	// Client
	BaseURL        string        `env:"SWAPCHAT_BASE_URL" envDefault:"http://127.0.0.1:8000"`
	Token          string        `env:"SWAPCHAT_TOKEN"`
	RequestTimeout time.Duration `env:"SWAPCHAT_REQUEST_TIMEOUT" envDefault:"10s"`
	ConversationID int64         `env:"SWAPCHAT_CONVERSATION_ID"` // optional, loaded on startup
	UserID         int64         `env:"SWAPCHAT_USER_ID"`
	ViewWidth      int           `env:"SWAPCHAT_VIEW_WIDTH" envDefault:"72"`
	ViewHeight     int           `env:"SWAPCHAT_VIEW_HEIGHT" envDefault:"20"`

	// Reference service
	ListenAddr string `env:"SWAPCHAT_LISTEN_ADDR" envDefault:":8000"`
	DBPath     string `env:"SWAPCHAT_DB_PATH" envDefault:"swapchat.db"`
	JWTSecret  string `env:"SWAPCHAT_JWT_SECRET"` // empty disables auth

	// Shared
	LogDir          string        `env:"SWAPCHAT_LOG_DIR" envDefault:"logs"`
	Debug           bool          `env:"SWAPCHAT_DEBUG"`
	ServiceName     string        `env:"SWAPCHAT_SERVICE_NAME" envDefault:"swapchat"` // log, trace and metric file prefix
	MetricsInterval time.Duration `env:"SWAPCHAT_METRICS_INTERVAL" envDefault:"10s"`
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// ValidateClient checks the settings used by the chat client
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.ConversationID < 0 || c.UserID < 0 {
		return fmt.Errorf("conversation and user ids must be positive")
	}
	if (c.ConversationID == 0) != (c.UserID == 0) {
		return fmt.Errorf("conversation and user ids must be given together")
	}
	return nil
}

// HasInitialSession reports whether a conversation should be loaded on startup
func (c *Config) HasInitialSession() bool {
	return c.ConversationID > 0 && c.UserID > 0
}

// ValidateServer checks the settings used by the reference service
func (c *Config) ValidateServer() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}
