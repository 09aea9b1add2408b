package http

import (
	"context"
	"log/slog"

	"github.com/example/eventform/internal/application"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger so request ids follow every line.
// Integration requests also carry the masked bearer key.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if key, ok := APIKeyFromContext(ctx); ok {
		pairs = append(pairs, "api_key", application.APIKey{Key: key}.MaskedKey())
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}
