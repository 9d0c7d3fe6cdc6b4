package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/raid-controller/internal/logging"
	"github.com/example/raid-controller/internal/persistence"
	"github.com/example/raid-controller/internal/session"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Resolve(ctx, base, "service", serviceName)
	if operation != "" {
		attrs = append([]any{"operation", operation}, attrs...)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoSession), errors.Is(err, session.ErrNoSession):
		return "no_session"
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, persistence.ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNoRules):
		return "no_rules"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
