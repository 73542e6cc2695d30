package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// appName tags every log entry of the process. Components add their own
// "service", "handler" or "component" field on top.
const appName = "paloma-store"

// NewLogger builds the process logger from cfg, writing to the configured
// stream.
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	out := io.Writer(os.Stdout)
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	return newLogger(cfg, out)
}

func newLogger(cfg LoggerConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stdout}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", appName).
		Logger()
}
