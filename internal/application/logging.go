package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/logging"
	"github.com/example/lab-resource-manager/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Resolve(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmailAlreadyLinked):
		return "already_linked"
	case errors.Is(err, persistence.ErrUnavailable):
		return "unavailable"
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return "conflict"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if errors.Is(err, domain.ErrDeviceSpec) {
		return "device_spec"
	}

	return "unexpected"
}
