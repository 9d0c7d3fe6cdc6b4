package http

import (
	"context"
	"log/slog"

	"github.com/example/raid-controller/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger tags the request logger with the handler, the operation and
// the actor id resolved from the path, when there is one.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Resolve(ctx, fallback, "handler", handlerName)

	pairs := make([]any, 0, len(attrs)+4)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id, ok := ActorIDFromContext(ctx); ok {
		pairs = append(pairs, "actor_id", id.String())
	}
	pairs = append(pairs, attrs...)
	if len(pairs) == 0 {
		return logger
	}
	return logger.With(pairs...)
}
