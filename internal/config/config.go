package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the filesystem layout of the application. All paths derive
// from DataDir so the whole data set relocates with one setting.
type Config struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigPath returns the location of the config file. The TASKDESK_CONFIG
// environment variable overrides the default user config dir.
func ConfigPath() (string, error) {
	if custom := os.Getenv("TASKDESK_CONFIG"); custom != "" {
		return custom, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to determine config directory: %w", homeErr)
		}
		return filepath.Join(home, ".taskdesk", "config.yaml"), nil
	}
	return filepath.Join(configDir, "taskdesk", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when it is absent.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg.withDefaults()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file (%s): %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file (%s): %w", path, err)
	}
	return cfg.withDefaults()
}

// Save writes the config file, creating its directory as needed.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) withDefaults() (*Config, error) {
	if c.DataDir != "" {
		return c, nil
	}

	// XDG data directory or ~/.local/share fallback.
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	c.DataDir = filepath.Join(dataDir, "taskdesk")
	return c, nil
}

// WorkspacesDir is where per-workspace database files live, one file per
// workspace named by workspace id.
func (c *Config) WorkspacesDir() string {
	return filepath.Join(c.DataDir, "workspaces")
}

// RegistryPath is the workspace metadata database.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "workspaces.db")
}

// LegacyDBPath is the pre-workspace single database location, checked once
// at first startup and adopted as the default workspace's backing file.
func (c *Config) LegacyDBPath() string {
	return filepath.Join(c.DataDir, "taskdesk.db")
}
