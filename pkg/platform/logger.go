package platform

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. JSON output for production, console
// writer when ENV=development.
func NewLogger(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var logger zerolog.Logger
	if GetEnv("ENV", "") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if level, err := zerolog.ParseLevel(GetEnv("LOG_LEVEL", "info")); err == nil {
		logger = logger.Level(level)
	}

	return logger.With().Str("service", service).Logger()
}
