// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"wheel-tracker/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    false,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "wheel-tracker", "logs", "wheel.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	// Create multi-writer
	var writer io.Writer
	if len(writers) == 0 {
		writer = io.Discard
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	// Set log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Create logger
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// SetInfoLevel sets the global log level to info.
func SetInfoLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
	// SymbolKey is the context key for symbol.
	SymbolKey ContextKey = "symbol"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogEvent logs a journal entry.
func LogEvent(logger zerolog.Logger, ev models.WheelEvent) {
	logger.Info().
		Str("event", string(ev.Type)).
		Str("event_id", ev.ID).
		Str("symbol", ev.Symbol).
		Float64("strike", ev.Strike).
		Int("contracts", ev.Contracts).
		Int64("amount_cents", int64(ev.Amount)).
		Msg("journal entry booked")
}

// LogRoll logs the booked pair of a roll.
func LogRoll(logger zerolog.Logger, symbol, rollID string, oldStrike, newStrike float64, newExpiry time.Time, net models.Cents) {
	logger.Info().
		Str("event", "roll").
		Str("symbol", symbol).
		Str("roll_id", rollID).
		Float64("old_strike", oldStrike).
		Float64("new_strike", newStrike).
		Time("new_expiry", newExpiry).
		Int64("net_cents", int64(net)).
		Msg("roll booked")
}

// LogAssignment logs an exercise settlement.
func LogAssignment(logger zerolog.Logger, symbol string, optType models.OptionType, shares int, strike float64) {
	logger.Info().
		Str("event", "assignment").
		Str("symbol", symbol).
		Str("type", string(optType)).
		Int("shares", shares).
		Float64("strike", strike).
		Msg("assignment settled")
}

// LogSnapshot logs a recorded min-strike snapshot.
func LogSnapshot(logger zerolog.Logger, snap models.MinStrikeSnapshot) {
	logger.Info().
		Str("event", "snapshot").
		Str("symbol", snap.Symbol).
		Time("date", snap.Date).
		Float64("average_cost", snap.AverageCost).
		Float64("min_strike", snap.MinStrike).
		Msg("min-strike snapshot recorded")
}

// LogImport logs the outcome of a journal import.
func LogImport(logger zerolog.Logger, path string, rows, applied int, err error) {
	event := logger.Info().
		Str("event", "import").
		Str("path", path).
		Int("rows", rows).
		Int("applied", applied)

	if err != nil {
		event.Err(err).Msg("import failed")
	} else {
		event.Msg("import completed")
	}
}
