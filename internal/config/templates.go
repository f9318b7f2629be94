package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Wheel Tracker Configuration

[database]
# SQLite database location. Defaults to wheel.db in this directory.
# path = "/home/you/.config/wheel-tracker/wheel.db"

[wheel]
# Days-to-expiration at or under which assignment is suggested
assignment_window_dte = 3
# Default lookahead for the expirations view, in days
expiry_window_days = 14
# Annualized return fraction above which a projection is flagged (1.0 = 100%)
roo_alert_threshold = 1.0
# |moneyness| below which a strike counts as near the money
near_money_band = 0.02

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"

[log]
# Log level: trace, debug, info, warn, error
level = "info"
# Mirror log lines to stderr
console = false
# Write logs to a rotating file
file = true
# Log file location. Defaults to logs/wheel.log in this directory.
# file_path = "/home/you/.config/wheel-tracker/logs/wheel.log"
# Rotate after this many megabytes
max_size_mb = 100
# Keep this many rotated files
max_backups = 7
# Delete rotated files older than this many days
max_age_days = 30
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
