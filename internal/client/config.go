package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBackendURL is used when no backend has been configured.
const DefaultBackendURL = "http://localhost:5050"

// Config is the CLI's persisted session, stored in ~/.teamdocs/config.json
// (the directory can be overridden with TEAMDOCS_CONFIG_DIR).
type Config struct {
	BackendURL   string `json:"backend_url"`
	Email        string `json:"email,omitempty"`
	Username     string `json:"username,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LoggedIn reports whether the config holds a session.
func (c *Config) LoggedIn() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// ClearSession drops the stored tokens but keeps the backend URL.
func (c *Config) ClearSession() {
	c.Email, c.Username, c.AccessToken, c.RefreshToken = "", "", "", ""
}

// ConfigPath returns the location of the config file.
func ConfigPath() (string, error) {
	if dir := os.Getenv("TEAMDOCS_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".teamdocs", "config.json"), nil
}

// LoadConfig reads the config file. A missing file yields a default config.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{BackendURL: DefaultBackendURL}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = DefaultBackendURL
	}
	return &cfg, nil
}

// SaveConfig writes the config file with owner-only permissions.
// The write goes through a temp file and a rename so a crash never leaves
// a truncated file behind.
func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config: %w", err)
	}
	return nil
}
