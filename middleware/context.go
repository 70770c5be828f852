package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/upb/coffee-shop/auth0"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// PermissionsKey is the context key for the permissions that satisfied the route requirement
	PermissionsKey contextKey = "permissions"

	// ScopesKey is the context key for role scopes derived from matched permissions
	ScopesKey contextKey = "scopes"
)

// GetRequestIDFromContext retrieves the request ID from context. It falls
// back to the ID set by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimiddleware.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ensureRequestID returns ctx carrying a request ID, generating one if absent
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := GetRequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// GetClaimsFromContext retrieves verified claims from context
func GetClaimsFromContext(ctx context.Context) *auth0.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth0.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds verified claims to the context
func WithClaims(ctx context.Context, claims *auth0.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetPermissionsFromContext retrieves the matched permissions from context
func GetPermissionsFromContext(ctx context.Context) []string {
	if val := ctx.Value(PermissionsKey); val != nil {
		if perms, ok := val.([]string); ok {
			return perms
		}
	}
	return nil
}

// WithPermissions adds the matched permissions to the context
func WithPermissions(ctx context.Context, permissions []string) context.Context {
	return context.WithValue(ctx, PermissionsKey, permissions)
}

// GetScopesFromContext retrieves role scopes from context. Never nil.
func GetScopesFromContext(ctx context.Context) []string {
	if val := ctx.Value(ScopesKey); val != nil {
		if scopes, ok := val.([]string); ok {
			return scopes
		}
	}
	return []string{}
}

// WithScopes adds role scopes to the context
func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, ScopesKey, scopes)
}
