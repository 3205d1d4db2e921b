// Package logging carries a request/workflow-scoped *slog.Logger on a plain
// context.Context, the same structured-logging-on-context idiom as
// gin.Context-bound middleware, adapted since HTTP routing sits outside
// this engine's scope.
package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey = contextKey("logger")

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger stored on ctx, falling back to
// slog.Default() if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}
