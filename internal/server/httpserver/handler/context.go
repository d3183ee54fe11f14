// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"context"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

type contextKey string

const contextKeyActor contextKey = "actor"

// WithActor returns a context carrying the authenticated user. Set by the
// authentication middleware before the request reaches a handler.
func WithActor(ctx context.Context, actor *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyActor, actor)
}

// ActorFromContext retrieves the authenticated user, or nil on
// unauthenticated routes.
func ActorFromContext(ctx context.Context) *domain.User {
	if actor, ok := ctx.Value(contextKeyActor).(*domain.User); ok {
		return actor
	}
	return nil
}

// requireActor returns the authenticated user or an unauthenticated error.
func requireActor(ctx context.Context) (*domain.User, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, domain.ErrUnauthenticated.WithDetails("no authenticated user on request")
	}
	return actor, nil
}
