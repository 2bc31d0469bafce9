// Package config manages the engine's persistent settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luminakraft/modpack-engine/internal/platform"
)

// Config holds the engine's persistent settings.
type Config struct {
	InstancesPath string `json:"instancesPath,omitempty"`
	TempPath      string `json:"tempPath,omitempty"`

	LogLevel       string `json:"logLevel"`
	EnableDebugLog bool   `json:"enableDebugLog"`

	DownloadTimeout        int `json:"downloadTimeout"` // seconds
	MaxConcurrentDownloads int `json:"maxConcurrentDownloads"`

	LastInstanceID string `json:"lastInstanceId,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:               "info",
		EnableDebugLog:         false,
		DownloadTimeout:        300,
		MaxConcurrentDownloads: 4,
	}
}

// GetConfigPath returns the path to the configuration file.
func GetConfigPath() string {
	appDataDir, err := platform.Current().GetAppDataDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(appDataDir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "config.json"
	}

	return filepath.Join(configDir, "settings.json")
}

// Load loads configuration from file, creating a default one if absent.
func Load() (*Config, error) {
	configPath := GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// Save saves configuration to file.
func (c *Config) Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DownloadTimeout < 10 || c.DownloadTimeout > 3600 {
		return fmt.Errorf("download timeout must be between 10 and 3600 seconds")
	}

	if c.MaxConcurrentDownloads < 1 || c.MaxConcurrentDownloads > 16 {
		return fmt.Errorf("max concurrent downloads must be between 1 and 16")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.LogLevel != "" && !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = defaults.DownloadTimeout
	}
	if c.MaxConcurrentDownloads == 0 {
		c.MaxConcurrentDownloads = defaults.MaxConcurrentDownloads
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// GetInstancesPath returns the path where instances should be stored.
func (c *Config) GetInstancesPath() string {
	if c.InstancesPath != "" {
		return c.InstancesPath
	}

	appDataDir, err := platform.Current().GetAppDataDir()
	if err != nil {
		return "instances"
	}
	return filepath.Join(appDataDir, "instances")
}

// GetTempPath returns the path for temporary files used during installs.
func (c *Config) GetTempPath() string {
	if c.TempPath != "" {
		return c.TempPath
	}

	return filepath.Join(os.TempDir(), "modpack-engine")
}
