package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidationResult represents the result of a validation.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validator handles configuration validation.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig performs comprehensive configuration validation.
func (v *Validator) ValidateConfig(config *Config) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}}

	v.validateLoggingSettings(config, result)
	v.validateNetworkSettings(config, result)
	v.validatePaths(config, result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *Validator) validateLoggingSettings(config *Config, result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

	if config.LogLevel != "" && !validLogLevels[config.LogLevel] {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid log level: %s (must be one of: debug, info, warn, error)", config.LogLevel))
		result.Valid = false
	}
}

func (v *Validator) validateNetworkSettings(config *Config, result *ValidationResult) {
	if config.DownloadTimeout < 10 {
		result.Errors = append(result.Errors, "download timeout must be at least 10 seconds")
		result.Valid = false
	}
	if config.DownloadTimeout > 3600 {
		result.Errors = append(result.Errors, "download timeout cannot exceed 3600 seconds")
		result.Valid = false
	}

	if config.MaxConcurrentDownloads < 1 {
		result.Errors = append(result.Errors, "maximum concurrent downloads must be at least 1")
		result.Valid = false
	}
	if config.MaxConcurrentDownloads > 16 {
		result.Errors = append(result.Errors, "maximum concurrent downloads cannot exceed 16")
		result.Valid = false
	}
}

func (v *Validator) validatePaths(config *Config, result *ValidationResult) {
	if config.InstancesPath != "" {
		if err := v.validateDirectoryPath(config.InstancesPath, "instances"); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("instances path validation failed: %v", err))
			result.Valid = false
		}
	}

	if config.TempPath != "" {
		if err := v.validateDirectoryPath(config.TempPath, "temp"); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("temp path validation failed: %v", err))
			result.Valid = false
		}
	}
}

// validateDirectoryPath ensures a directory exists (creating it if
// necessary) and is writable.
func (v *Validator) validateDirectoryPath(path, pathType string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", pathType, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to access %s directory: %w", pathType, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".engine_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("%s directory is not writable: %w", pathType, err)
	}
	os.Remove(testFile)

	return nil
}

// ValidateTimeout validates a timeout value in seconds.
func (v *Validator) ValidateTimeout(timeout int) error {
	if timeout < 10 {
		return fmt.Errorf("timeout must be at least 10 seconds")
	}
	if timeout > 3600 {
		return fmt.Errorf("timeout cannot exceed 3600 seconds")
	}
	return nil
}
