package middleware

import (
	"context"

	pkgauth "github.com/nextbite-hq/nextbite-backend/pkg/auth"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
)

type contextKey string

const (
	ctxUser    contextKey = "actor"
	ctxClaims  contextKey = "claims"
	ctxTokenID contextKey = "token_id"
)

// ActorFromContext returns the authenticated user seeded by the Auth middleware.
func ActorFromContext(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*models.User); ok {
		return v
	}
	return nil
}

// TokenIDFromContext returns the jti of the access token used for the request.
func TokenIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTokenID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the authenticated user into the context.
func WithActor(ctx context.Context, user *models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUser, user)
}

// ClaimsFromContext returns the parsed access token claims for the request.
func ClaimsFromContext(ctx context.Context) *pkgauth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*pkgauth.AccessTokenClaims); ok {
		return v
	}
	return nil
}

// WithClaims injects the parsed access token claims into the context.
func WithClaims(ctx context.Context, claims *pkgauth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

// WithTokenID injects the access token id into the context.
func WithTokenID(ctx context.Context, jti string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTokenID, jti)
}
