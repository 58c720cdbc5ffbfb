// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For the optional Twitch chat bot, use ValidateChatReady.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Storage. DBDsn selects the backend; when empty the JSON file store is used.
	DBDsn        string `env:"DB_DSN"`
	DataDir      string `env:"DATA_DIR" envDefault:"data"`
	CommandsFile string `env:"COMMANDS_FILE"`
	WatchFile    bool   `env:"COMMANDS_FILE_WATCH" envDefault:"true"`

	// Write API secret. Empty disables all write operations.
	APIKey string `env:"COMMANDS_API_KEY"`

	// Fixed catalog override (YAML). Empty uses the embedded default.
	CatalogPath string `env:"CATALOG_PATH"`

	// CORS
	Env                string   `env:"ENV"`
	CORSPermissive     string   `env:"CORS_PERMISSIVE"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Twitch chat bot
	TwitchChannel     string `env:"TWITCH_CHANNEL"`
	TwitchBotUsername string `env:"TWITCH_BOT_USERNAME"`
	TwitchOAuthToken  string `env:"TWITCH_OAUTH_TOKEN"`
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() when you require the chat bot. A missing COMMANDS_API_KEY leaves the
// write API closed rather than failing startup.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.CommandsFile == "" {
		cfg.CommandsFile = filepath.Join(cfg.DataDir, "commands.json")
	}
	cfg.TwitchChannel = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cfg.TwitchChannel)), "#")

	origins := cfg.CORSAllowedOrigins[:0]
	for _, o := range cfg.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSAllowedOrigins = origins

	return cfg, nil
}

// ValidateChatReady checks required fields when the chat bot is enabled.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// WritesEnabled reports whether a shared secret is configured for the write API.
func (c *Config) WritesEnabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// CORSIsPermissive reports whether CORS should allow any origin. Dev environments are
// permissive by default; CORS_PERMISSIVE overrides either way.
func (c *Config) CORSIsPermissive() bool {
	mode := strings.ToLower(c.Env)
	permissive := mode == "" || mode == "dev" || mode == "development"
	if c.CORSPermissive != "" {
		permissive = c.CORSPermissive == "1" || strings.EqualFold(c.CORSPermissive, "true")
	}
	return permissive
}
