package logger

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

// LoggerKey is the context key for the logger instance
const LoggerKey ContextKey = "logger"

// New creates a console logger. Without verbose only warnings and errors are written.
func New(w io.Writer, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(output).Level(level(verbose)).With().Timestamp().Logger()
}

// NewJSON creates a logger writing one JSON object per line, used by the server.
func NewJSON(w io.Writer, verbose bool) zerolog.Logger {
	return zerolog.New(w).Level(level(verbose)).With().Timestamp().Logger()
}

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

// SetDefault makes l the package-level logger used outside request scope.
func SetDefault(l zerolog.Logger) {
	log.Logger = l
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext retrieves the logger from the context, falling back to the default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return l
	}
	return log.Logger
}
