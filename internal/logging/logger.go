// Package logging provides the structured logger used across the bot,
// backed by zerolog. Components obtain a child logger with their own
// component field; the evaluation loop adds per-cycle fields on top.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"okx-short-bot/config"
)

var (
	mu            sync.RWMutex
	defaultLogger zerolog.Logger = newLogger(config.LoggingConfig{Level: "info", Output: "stdout", JSONFormat: true})
)

// Init configures the default logger from config. Safe to call once at startup.
func Init(cfg config.LoggingConfig) {
	mu.Lock()
	defaultLogger = newLogger(cfg)
	mu.Unlock()
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = file
		}
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Default returns the process-wide logger.
func Default() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(component string) zerolog.Logger {
	return Default().With().Str("component", component).Logger()
}

// WithSymbol returns a child logger tagged with component and symbol, the
// common shape for per-symbol pipeline logs.
func WithSymbol(component, symbol string) zerolog.Logger {
	return Default().With().Str("component", component).Str("symbol", symbol).Logger()
}
