package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/logging"
)

// ActorHeader names the request header carrying the acting user's email.
const ActorHeader = "X-User-Email"

// RequestObserver receives the final status of every request.
type RequestObserver interface {
	ObserveRequest(method string, statusCode int)
}

// RequireActor rejects requests without a usable X-User-Email header and
// stores the actor in the request context.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ActorHeader)
			if raw == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
				return
			}
			actor, err := domain.NewEmailAddress(raw)
			if err != nil {
				responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActor)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequestLogger attaches a request scoped logger to the context and logs the
// outcome of every request. A nil observer only logs.
func RequestLogger(base *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if observer != nil {
				observer.ObserveRequest(r.Method, status)
			}
			logger.InfoContext(ctx, "request completed", "status", status, "duration", time.Since(start))
		})
	}
}
