// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wheel-tracker/internal/config"
	"wheel-tracker/internal/logging"
	"wheel-tracker/internal/store"
	"wheel-tracker/internal/wheel"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.WheelStore
	Engine *wheel.Engine
}

// NewOutput builds a command's output sink honoring the UI config.
func (a *App) NewOutput(cmd *cobra.Command) *Output {
	out := NewOutput(cmd)
	if a.Config != nil {
		if !a.Config.UI.ColorEnabled {
			out.colorEnabled = false
		}
		if a.Config.UI.DateFormat != "" {
			out.dateFormat = a.Config.UI.DateFormat
		}
	}
	return out
}

// requireEngine returns the journal engine or an error when the store
// failed to open at startup.
func (a *App) requireEngine() (*wheel.Engine, error) {
	if a.Engine == nil {
		return nil, fmt.Errorf("store not initialized: check database.path in config.toml")
	}
	return a.Engine, nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	wheelStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = wheelStore
		app.Engine = wheel.NewEngine(wheelStore, logger)
		logger.Debug().Str("path", cfg.Database.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "wheel",
		Short: "Wheel Tracker - options wheel income journal",
		Long: `Wheel Tracker records every leg of an options wheel - cash-secured puts,
assignments, covered calls, buybacks and rolls - in an append-only journal
and derives position state, income and risk by replaying it.

Use 'wheel help <command>' for more information about a command.
Use 'wheel examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/wheel-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addCalcCommands(rootCmd, app)
	addRecordCommands(rootCmd, app)
	addRollCommands(rootCmd, app)
	addStatusCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addImportCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Wheel Tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open configuration file in editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			configPath := config.DefaultConfigDir() + "/config.toml"
			output.Info("Configuration file: %s", configPath)
			output.Println("Edit this file to change settings.")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Wheel")
	output.Printf("  Assignment Window: %d DTE\n", cfg.Wheel.AssignmentWindowDTE)
	output.Printf("  Expiry Window:     %d days\n", cfg.Wheel.ExpiryWindowDays)
	output.Printf("  ROO Alert:         %.0f%% annualized\n", cfg.Wheel.ROOAlertThreshold*100)
	output.Printf("  Near-Money Band:   %.1f%%\n", cfg.Wheel.NearMoneyBand*100)
	output.Println()

	output.Bold("UI")
	output.Printf("  Color:           %v\n", cfg.UI.ColorEnabled)
	output.Printf("  Date Format:     %s\n", cfg.UI.DateFormat)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  Console:         %v\n", cfg.Log.Console)
	output.Printf("  File:            %v\n", cfg.Log.File)
	output.Printf("  File Path:       %s\n", cfg.Log.FilePath)
	output.Printf("  Rotation:        %d MB, %d backups, %d days\n",
		cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)

	return nil
}
