// Package secrets resolves secret references in configuration values.
//
// A value of the form vault:mount/path#key is read from the key of a
// HashiCorp Vault KV v2 secret; env:NAME is read from the environment.
// Any other value is returned unchanged.
package secrets

import (
	"context"
	"errors"
)

// ProviderType represents the type of secrets provider
type ProviderType string

const (
	// ProviderTypeVault uses HashiCorp Vault as the backend
	ProviderTypeVault ProviderType = "vault"
	// ProviderTypeEnv uses environment variables as the backend
	ProviderTypeEnv ProviderType = "env"
)

// Common errors for secrets providers
var (
	// ErrSecretNotFound is returned when a secret is not found
	ErrSecretNotFound = errors.New("secret not found")
	// ErrProviderNotConfigured is returned when the provider is not properly configured
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrInvalidPath is returned when the secret path is invalid
	ErrInvalidPath = errors.New("invalid secret path")
	// ErrInvalidReference is returned when a secret reference cannot be parsed
	ErrInvalidReference = errors.New("invalid secret reference")
)

// Secret represents a secret with key-value data
type Secret struct {
	// Path is where the secret was read from
	Path string
	// Data contains the secret key-value pairs
	Data map[string][]byte
	// Version is the version of the secret (if supported by the provider)
	Version string
}

// GetString returns a string value from the secret data
func (s *Secret) GetString(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	if !ok {
		return "", false
	}
	return string(v), true
}

// Provider reads secrets from one backend.
type Provider interface {
	// Type returns the provider type
	Type() ProviderType

	// GetSecret retrieves the secret at path
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
