package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"WHEEL_DB_PATH", "WHEEL_LOG_LEVEL", "NO_COLOR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadCreatesTemplateOnFirstRun(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created template")

	// The template is now in place and parses cleanly.
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Wheel.AssignmentWindowDTE)
	assert.Equal(t, 14, cfg.Wheel.ExpiryWindowDays)
	assert.InDelta(t, 1.0, cfg.Wheel.ROOAlertThreshold, 1e-9)
	assert.InDelta(t, 0.02, cfg.Wheel.NearMoneyBand, 1e-9)
	assert.True(t, cfg.UI.ColorEnabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "wheel.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(dir, "logs", "wheel.log"), cfg.Log.FilePath)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `[wheel]
expiry_window_days = 30

[database]
path = "/tmp/elsewhere/wheel.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Wheel.ExpiryWindowDays)
	assert.Equal(t, "/tmp/elsewhere/wheel.db", cfg.Database.Path)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Wheel.AssignmentWindowDTE)
	assert.InDelta(t, 0.02, cfg.Wheel.NearMoneyBand, 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(configTemplate), 0644))

	t.Setenv("WHEEL_DB_PATH", "/tmp/override/wheel.db")
	t.Setenv("NO_COLOR", "1")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override/wheel.db", cfg.Database.Path)
	assert.False(t, cfg.UI.ColorEnabled)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(configTemplate), 0644))

	t.Setenv("WHEEL_LOG_LEVEL", "verbose")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Wheel: WheelConfig{
				AssignmentWindowDTE: 3,
				ExpiryWindowDays:    14,
				ROOAlertThreshold:   1.0,
				NearMoneyBand:       0.02,
			},
			Log: LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative assignment window", func(c *Config) { c.Wheel.AssignmentWindowDTE = -1 }, "assignment_window_dte"},
		{"zero expiry window", func(c *Config) { c.Wheel.ExpiryWindowDays = 0 }, "expiry_window_days"},
		{"zero threshold", func(c *Config) { c.Wheel.ROOAlertThreshold = 0 }, "roo_alert_threshold"},
		{"band above one", func(c *Config) { c.Wheel.NearMoneyBand = 1.5 }, "near_money_band"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"negative rotation", func(c *Config) { c.Log.MaxBackups = -1 }, "log rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
