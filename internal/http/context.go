package http

import (
	"context"
	"log/slog"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/logging"
)

type contextKey string

const actorIDContextKey contextKey = "actor_id"

// ContextWithLogger attaches the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithActorID injects the actor identifier resolved from the request path.
func ContextWithActorID(ctx context.Context, id arbitration.ActorID) context.Context {
	return context.WithValue(ctx, actorIDContextKey, id)
}

// ActorIDFromContext extracts an actor identifier previously associated with the context.
func ActorIDFromContext(ctx context.Context) (arbitration.ActorID, bool) {
	id, ok := ctx.Value(actorIDContextKey).(arbitration.ActorID)
	return id, ok
}
