package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/luminakraft/modpack-engine/internal/logging"
)

// SettingsManager manages configuration with validated in-memory updates
// and disk persistence.
type SettingsManager struct {
	config    *Config
	validator *Validator
	logger    *logging.Logger
	listeners []SettingsChangeListener
	autoSave  bool
	lastSave  time.Time
}

// SettingsChangeListener is called when settings change.
type SettingsChangeListener interface {
	OnSettingsChanged(config *Config, changes map[string]interface{})
}

// SettingsChangeFunc is a function adapter for SettingsChangeListener.
type SettingsChangeFunc func(config *Config, changes map[string]interface{})

func (f SettingsChangeFunc) OnSettingsChanged(config *Config, changes map[string]interface{}) {
	f(config, changes)
}

// NewSettingsManager creates a new settings manager, loading persisted
// settings from disk.
func NewSettingsManager(logger *logging.Logger) (*SettingsManager, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &SettingsManager{
		config:    config,
		validator: NewValidator(),
		logger:    logger,
		listeners: []SettingsChangeListener{},
		autoSave:  true,
		lastSave:  time.Now(),
	}, nil
}

// GetConfig returns the current configuration.
func (sm *SettingsManager) GetConfig() *Config {
	return sm.config
}

// UpdateConfig updates the configuration with validation, rolling back on
// any failure.
func (sm *SettingsManager) UpdateConfig(updates map[string]interface{}) error {
	oldConfig := sm.cloneConfig()

	changes := make(map[string]interface{})
	for key, value := range updates {
		if err := sm.applyUpdate(sm.config, key, value); err != nil {
			sm.config = oldConfig
			return fmt.Errorf("failed to apply update %s: %w", key, err)
		}
		changes[key] = value
	}

	if validation := sm.validator.ValidateConfig(sm.config); !validation.Valid {
		sm.config = oldConfig
		return fmt.Errorf("validation failed: %s", validation.Errors[0])
	}

	sm.notifyListeners(changes)

	if sm.autoSave {
		if err := sm.Save(); err != nil {
			sm.logger.Error("failed to auto-save configuration: %v", err)
		}
	}

	sm.logger.Info("configuration updated: %v", changes)
	return nil
}

// Save saves the configuration to disk.
func (sm *SettingsManager) Save() error {
	if err := sm.config.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	sm.lastSave = time.Now()
	sm.logger.Debug("configuration saved to disk")
	return nil
}

// ResetToDefaults resets all settings to defaults, preserving LastInstanceID.
func (sm *SettingsManager) ResetToDefaults() error {
	defaultConfig := DefaultConfig()
	defaultConfig.LastInstanceID = sm.config.LastInstanceID

	sm.config = defaultConfig

	sm.notifyListeners(map[string]interface{}{"reset": true})

	if err := sm.Save(); err != nil {
		return fmt.Errorf("failed to save reset configuration: %w", err)
	}

	sm.logger.Info("configuration reset to defaults")
	return nil
}

// ExportSettings exports settings to a file.
func (sm *SettingsManager) ExportSettings(filePath string) error {
	data, err := json.MarshalIndent(sm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	sm.logger.Info("settings exported to: %s", filePath)
	return nil
}

// ImportSettings imports settings from a file.
func (sm *SettingsManager) ImportSettings(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var imported Config
	if err := json.Unmarshal(data, &imported); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	if validation := sm.validator.ValidateConfig(&imported); !validation.Valid {
		return fmt.Errorf("imported configuration is invalid: %s", validation.Errors[0])
	}

	sm.config = &imported

	sm.notifyListeners(map[string]interface{}{"imported": true})

	if err := sm.Save(); err != nil {
		return fmt.Errorf("failed to save imported configuration: %w", err)
	}

	sm.logger.Info("settings imported from: %s", filePath)
	return nil
}

// AddListener adds a settings change listener.
func (sm *SettingsManager) AddListener(listener SettingsChangeListener) {
	sm.listeners = append(sm.listeners, listener)
}

// RemoveListener removes a settings change listener.
func (sm *SettingsManager) RemoveListener(listener SettingsChangeListener) {
	for i, l := range sm.listeners {
		if l == listener {
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// SetAutoSave enables or disables auto-save.
func (sm *SettingsManager) SetAutoSave(autoSave bool) {
	sm.autoSave = autoSave
	sm.logger.Debug("auto-save set to: %v", autoSave)
}

// GetLastSaveTime returns the last save time.
func (sm *SettingsManager) GetLastSaveTime() time.Time {
	return sm.lastSave
}

// ValidateCurrentSettings validates the current configuration.
func (sm *SettingsManager) ValidateCurrentSettings() *ValidationResult {
	return sm.validator.ValidateConfig(sm.config)
}

// applyUpdate applies a single update to the configuration.
func (sm *SettingsManager) applyUpdate(config *Config, key string, value interface{}) error {
	switch key {
	case "InstancesPath":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for InstancesPath")
		}
		config.InstancesPath = v
	case "TempPath":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for TempPath")
		}
		config.TempPath = v
	case "LogLevel":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for LogLevel")
		}
		config.LogLevel = v
	case "EnableDebugLog":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("invalid type for EnableDebugLog")
		}
		config.EnableDebugLog = v
	case "DownloadTimeout":
		switch v := value.(type) {
		case float64:
			config.DownloadTimeout = int(v)
		case int:
			config.DownloadTimeout = v
		default:
			return fmt.Errorf("invalid type for DownloadTimeout")
		}
	case "MaxConcurrentDownloads":
		switch v := value.(type) {
		case float64:
			config.MaxConcurrentDownloads = int(v)
		case int:
			config.MaxConcurrentDownloads = v
		default:
			return fmt.Errorf("invalid type for MaxConcurrentDownloads")
		}
	case "LastInstanceID":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for LastInstanceID")
		}
		config.LastInstanceID = v
	default:
		return fmt.Errorf("unknown setting key: %s", key)
	}

	return nil
}

func (sm *SettingsManager) notifyListeners(changes map[string]interface{}) {
	for _, listener := range sm.listeners {
		listener.OnSettingsChanged(sm.config, changes)
	}
}

func (sm *SettingsManager) cloneConfig() *Config {
	data, _ := json.Marshal(sm.config)
	var clone Config
	json.Unmarshal(data, &clone)
	return &clone
}
