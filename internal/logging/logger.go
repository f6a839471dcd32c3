// Package logging builds the zerolog logger shared by the Lambda handler,
// the HTTP server and the CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config represents the logging configuration
type Config struct {
	Level  string
	Format string // json | console
	Output io.Writer
}

// ParseLevel converts a string log level to zerolog.Level
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger; Lambda 下默认 JSON 输出到 stdout，CloudWatch 直接收集。
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Printf adapts a logger for libraries that expect a printf-style callback.
func Printf(log zerolog.Logger, level zerolog.Level) func(string, ...any) {
	return func(format string, args ...any) {
		log.WithLevel(level).Msgf(format, args...)
	}
}
