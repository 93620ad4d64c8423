// Package logger configures the process-wide slog logger and carries
// per-request or per-build attributes through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// Setup installs the default logger. Output goes to stderr so the interactive
// searcher can keep stdout for results.
func Setup(level string, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithAttrs returns a context whose logger carries the given key/value pairs
// (a request id, a build generation).
func WithAttrs(ctx context.Context, args ...any) context.Context {
	if prev, ok := ctx.Value(contextKey{}).([]any); ok {
		args = append(append([]any{}, prev...), args...)
	}
	return context.WithValue(ctx, contextKey{}, args)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if args, ok := ctx.Value(contextKey{}).([]any); ok && len(args) > 0 {
		logger = logger.With(args...)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
