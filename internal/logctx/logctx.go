// Package logctx passes loggers through context.Context so that phase and
// worker identity attached by the pipeline driver propagates into the
// dispatcher's workers without any ambient globals.
package logctx

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once
)

// DefaultLogger returns the process-wide fallback logger used when no
// context logger is present: JSON to stderr with timestamps.
func DefaultLogger() zerolog.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	})
	return defaultLogger
}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context, falling back to
// DefaultLogger. Never panics and never returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a new context whose logger carries the given string field.
func WithStr(ctx context.Context, key, value string) context.Context {
	base := FromContext(ctx)
	return WithLogger(ctx, base.With().Str(key, value).Logger())
}

// WithInt returns a new context whose logger carries the given int field.
func WithInt(ctx context.Context, key string, value int) context.Context {
	base := FromContext(ctx)
	return WithLogger(ctx, base.With().Int(key, value).Logger())
}
