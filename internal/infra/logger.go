package infra

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. level overrides the environment
// default (debug in development, info elsewhere); an unknown level is ignored.
// Every entry carries service=sitegen.
func NewLogger(appEnv, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if appEnv == "development" {
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	var out zerolog.Logger
	if appEnv == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		out = zerolog.New(os.Stdout)
	}
	return out.Level(lvl).With().Timestamp().Str("service", "sitegen").Logger()
}

// Logger aliases zerolog.Logger so components take a logger option without
// importing zerolog themselves.
type Logger = zerolog.Logger
