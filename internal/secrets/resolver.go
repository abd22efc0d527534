package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Resolver replaces secret references with the secrets they name.
type Resolver struct {
	providers map[ProviderType]Provider
	logger    observability.Logger
}

// NewResolver creates a resolver over providers. The environment provider
// is always available.
func NewResolver(logger observability.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = observability.NopLogger()
	}

	r := &Resolver{
		providers: map[ProviderType]Provider{ProviderTypeEnv: NewEnvProvider()},
		logger:    logger,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Type()] = p
		}
	}
	return r
}

// NewResolverFromConfig creates a resolver with a Vault provider when
// Vault is enabled in cfg.
func NewResolverFromConfig(cfg config.VaultConfig, logger observability.Logger) (*Resolver, error) {
	if !cfg.Enabled {
		return NewResolver(logger), nil
	}

	vault, err := NewVaultProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewResolver(logger, vault), nil
}

// IsReference reports whether value names a secret.
func IsReference(value string) bool {
	scheme, _, found := strings.Cut(value, ":")
	if !found {
		return false
	}
	switch ProviderType(scheme) {
	case ProviderTypeVault, ProviderTypeEnv:
		return true
	default:
		return false
	}
}

// Resolve returns the secret named by value, or value itself when it is
// not a reference.
//
// Vault references have the form vault:mount/path#key; env references
// have the form env:NAME.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	scheme, ref, _ := strings.Cut(value, ":")
	path, key := ref, envValueKey
	if ProviderType(scheme) == ProviderTypeVault {
		var found bool
		path, key, found = strings.Cut(ref, "#")
		if !found || path == "" || key == "" {
			return "", fmt.Errorf("%w: %q must have the form vault:mount/path#key", ErrInvalidReference, value)
		}
	}

	provider, ok := r.providers[ProviderType(scheme)]
	if !ok {
		return "", fmt.Errorf("%w: %s provider for %q", ErrProviderNotConfigured, scheme, path)
	}

	secret, err := provider.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}

	v, ok := secret.GetString(key)
	if !ok {
		return "", fmt.Errorf("%w: key %q in %s", ErrSecretNotFound, key, secret.Path)
	}
	return v, nil
}

// ResolveConfig resolves every secret-bearing field of cfg in place.
func (r *Resolver) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"jwt.hsKey", &cfg.JWT.HSKey},
		{"jwt.auth0.login.hsKey", &cfg.JWT.Auth0.Login.HSKey},
		{"cache.redis.url", &cfg.Cache.Redis.URL},
	}

	for _, f := range fields {
		if !IsReference(*f.value) {
			continue
		}
		v, err := r.Resolve(ctx, *f.value)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f.name, err)
		}
		*f.value = v
		r.logger.Debug("secret resolved", observability.String("field", f.name))
	}
	return nil
}
