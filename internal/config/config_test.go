package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "swapchat", cfg.ServiceName)
	assert.Equal(t, 10*time.Second, cfg.MetricsInterval)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 20, cfg.ViewHeight)
	assert.False(t, cfg.HasInitialSession())
	assert.NoError(t, cfg.ValidateClient())
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SWAPCHAT_BASE_URL", "https://chat.example.com")
	t.Setenv("SWAPCHAT_REQUEST_TIMEOUT", "3s")
	t.Setenv("SWAPCHAT_CONVERSATION_ID", "42")
	t.Setenv("SWAPCHAT_USER_ID", "7")
	t.Setenv("SWAPCHAT_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.HasInitialSession())
	assert.NoError(t, cfg.ValidateClient())
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("SWAPCHAT_USER_ID", "seven")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"relative url", func(c *Config) { c.BaseURL = "/api" }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, true},
		{"only conversation", func(c *Config) { c.ConversationID = 42 }, true},
		{"negative user", func(c *Config) { c.ConversationID = 42; c.UserID = -1 }, true},
		{"both ids", func(c *Config) { c.ConversationID = 42; c.UserID = 7 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BaseURL: "http://localhost:8000", RequestTimeout: time.Second}
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.ValidateClient())
			} else {
				assert.NoError(t, cfg.ValidateClient())
			}
		})
	}
}
