package http

import (
	"context"

	"github.com/example/lab-resource-manager/internal/domain"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ContextWithActor returns a derived context carrying the acting user.
func ContextWithActor(ctx context.Context, actor domain.EmailAddress) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext extracts the acting user set by RequireActor.
func ActorFromContext(ctx context.Context) (domain.EmailAddress, bool) {
	actor, ok := ctx.Value(actorContextKey).(domain.EmailAddress)
	return actor, ok && actor != ""
}
