package auth

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
)

type contextKey int

const (
	claimsContextKey contextKey = iota
	scopesContextKey
)

// ContextWithClaims returns a context carrying the caller's claims.
func ContextWithClaims(ctx context.Context, claims jwt.Identity) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the caller's claims, or nil when the request was
// not authenticated.
func ClaimsFromContext(ctx context.Context) jwt.Identity {
	claims, _ := ctx.Value(claimsContextKey).(jwt.Identity)
	return claims
}

// ContextWithScopes returns a context carrying the caller's scopes.
func ContextWithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopesContextKey, scopes)
}

// ScopesFromContext returns the caller's scopes.
func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(scopesContextKey).([]string)
	return scopes
}

// CurrentUser returns the id of the caller: the first of clinician_id,
// device_id, patient_id and system_id present in its claims, or
// UnknownUser.
func CurrentUser(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	for _, key := range userIDClaims {
		v, ok := claims[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return UnknownUser
}
