package jwt

import (
	"context"
)

// KeyResolver returns the key that verifies a token with the given header.
type KeyResolver interface {
	ResolveKey(ctx context.Context, header Header) (any, error)
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(ctx context.Context, header Header) (any, error)

// ResolveKey calls f.
func (f KeyResolverFunc) ResolveKey(ctx context.Context, header Header) (any, error) {
	return f(ctx, header)
}

// StaticKeyResolver returns a configured shared secret. It performs no I/O.
type StaticKeyResolver struct {
	secret []byte
}

// NewStaticKeyResolver creates a resolver for a symmetric secret.
func NewStaticKeyResolver(secret []byte) *StaticKeyResolver {
	return &StaticKeyResolver{secret: secret}
}

// ResolveKey returns the secret regardless of the header.
func (r *StaticKeyResolver) ResolveKey(_ context.Context, _ Header) (any, error) {
	if len(r.secret) == 0 {
		return nil, &KeyResolutionError{Reason: ReasonInvalidKey}
	}
	return r.secret, nil
}
