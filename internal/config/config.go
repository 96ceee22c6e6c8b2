// Package config loads and stores gridrows configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"gridrows/internal/xdg"
)

// Config holds non-sensitive settings for both the client and the server.
type Config struct {
	LogLevel string `json:"log_level"`
	// ServerURL is the base URL the client talks to.
	ServerURL string `json:"server_url"`
	// Listen is the address the serve command binds to.
	Listen  string         `json:"listen"`
	DB      DBConfig       `json:"db"`
	Actions []ActionConfig `json:"actions"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	DSN      string `json:"dsn"`
	Provided bool   `json:"provided"`
}

// ActionConfig declares one named mutation the server exposes. SQL is the
// per-row statement; row columns and submitted items are available as named
// arguments.
type ActionConfig struct {
	Name           string `json:"name"`
	Table          string `json:"table"`
	SQL            string `json:"sql"`
	SuccessMessage string `json:"success_message,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	MessageTitle   string `json:"message_title,omitempty"`
	// EmptySelectionMessage is returned for zero-row selections when
	// ShowEmptyMessage is set.
	EmptySelectionMessage string `json:"empty_selection_message,omitempty"`
	ShowEmptyMessage      bool   `json:"show_empty_message,omitempty"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Defaults (credentials come from env/keychain, not config)
			c.LogLevel = "info"
			c.Listen = "127.0.0.1:8844"
			c.DB = DBConfig{} // No default DSN - fail-fast if not provided via env/keychain
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8844"
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
