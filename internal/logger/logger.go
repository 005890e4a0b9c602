// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// requestIDKey is the context key for request/correlation IDs.
type requestIDKey struct{}

// New creates a structured JSON logger writing to stdout at the given
// level. level is one of the strings accepted by config.LogConfig.Level
// (§1.1): off, error, warn, info, debug, trace. "off" discards everything;
// "trace" maps onto slog's debug level, since slog has no finer level.
func New(level string) *slog.Logger {
	var out io.Writer = os.Stdout
	slogLevel := slog.LevelInfo

	switch level {
	case "off":
		out = io.Discard
	case "error":
		slogLevel = slog.LevelError
	case "warn":
		slogLevel = slog.LevelWarn
	case "info":
		slogLevel = slog.LevelInfo
	case "debug", "trace":
		slogLevel = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slogLevel,
	}))
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (request ID, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		return base.With("request_id", reqID)
	}
	return base
}
