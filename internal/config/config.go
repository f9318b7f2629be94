// Package config provides configuration management for the wheel tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Wheel    WheelConfig    `mapstructure:"wheel"`
	UI       UIConfig       `mapstructure:"ui"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// WheelConfig holds wheel strategy thresholds.
type WheelConfig struct {
	AssignmentWindowDTE int     `mapstructure:"assignment_window_dte"` // DTE at or under which assignment is suggested
	ExpiryWindowDays    int     `mapstructure:"expiry_window_days"`    // default lookahead for the expirations view
	ROOAlertThreshold   float64 `mapstructure:"roo_alert_threshold"`   // annualized return fraction flagged as implausible
	NearMoneyBand       float64 `mapstructure:"near_money_band"`       // |moneyness| treated as near the money
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/wheel-tracker"
	}
	return filepath.Join(home, ".config", "wheel-tracker")
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	return filepath.Join(DefaultConfigDir(), "wheel.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	resolvePaths(cfg, configDir)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wheel.assignment_window_dte", 3)
	v.SetDefault("wheel.expiry_window_days", 14)
	v.SetDefault("wheel.roo_alert_threshold", 1.0)
	v.SetDefault("wheel.near_money_band", 0.02)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
	v.SetDefault("log.file", true)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WHEEL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("WHEEL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	// NO_COLOR convention: any value disables colored output
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.UI.ColorEnabled = false
	}
}

// resolvePaths fills in locations left empty by the config file.
func resolvePaths(cfg *Config, configDir string) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(configDir, "wheel.db")
	}
	if cfg.Log.FilePath == "" {
		cfg.Log.FilePath = filepath.Join(configDir, "logs", "wheel.log")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Wheel.AssignmentWindowDTE < 0 {
		return fmt.Errorf("assignment_window_dte must be non-negative")
	}
	if c.Wheel.ExpiryWindowDays < 1 {
		return fmt.Errorf("expiry_window_days must be at least 1")
	}
	if c.Wheel.ROOAlertThreshold <= 0 {
		return fmt.Errorf("roo_alert_threshold must be positive")
	}
	if c.Wheel.NearMoneyBand < 0 || c.Wheel.NearMoneyBand > 1 {
		return fmt.Errorf("near_money_band must be between 0 and 1")
	}

	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn or error)", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings must be non-negative")
	}

	return nil
}
