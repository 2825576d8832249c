// Package logging initialises the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger
type Config struct {
	Level  string    // optional log level ("debug", "info", ...)
	Output io.Writer // optional writer (defaults to os.Stdout)
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global zerolog logger exactly once
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		} else if env := os.Getenv("LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stdout
		}

		base = zerolog.New(writer).With().
			Timestamp().
			Str("service", "tubecutter").
			Logger()
	})
}

// Base returns the configured base logger instance
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger annotated with the given component name
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
