// Package logging configures the application-wide zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger with structured JSON output. Level is parsed
// from the given string (e.g. "debug", "info", "warn", "error"); unknown
// levels fall back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "tubedigest").
		Logger().
		Level(lvl)
}
