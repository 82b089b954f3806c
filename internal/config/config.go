// Package config loads the server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Listen       string `yaml:"listen"`
	DatabasePath string `yaml:"database_path"`
	AuthToken    string `yaml:"auth_token"`
	LogLevel     string `yaml:"log_level"`
}

// Load loads config from the given path, or the user's config directory
// when path is empty. Returns default config if no file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := getConfigPath()
		if err == nil {
			path = defaultPath
		}
	}

	config := &Config{}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	config.applyEnv()
	config.applyDefaults()
	return config, nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "cadence", "config.yaml"), nil
	}

	// Fall back to ~/.config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "cadence", "config.yaml"), nil
}

// applyEnv overrides file values with CADENCE_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CADENCE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CADENCE_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("CADENCE_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func defaultDatabasePath() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "cadence", "cadence.db")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "cadence.db"
	}
	return filepath.Join(homeDir, ".local", "share", "cadence", "cadence.db")
}
