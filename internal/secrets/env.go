package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider reads secrets from environment variables. The value is
// stored under the key "value".
type EnvProvider struct{}

// NewEnvProvider creates a new environment variable secrets provider
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Type returns the provider type
func (p *EnvProvider) Type() ProviderType {
	return ProviderTypeEnv
}

// GetSecret reads the environment variable named path.
func (p *EnvProvider) GetSecret(_ context.Context, path string) (*Secret, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	v, ok := os.LookupEnv(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	return &Secret{
		Path: path,
		Data: map[string][]byte{envValueKey: []byte(v)},
	}, nil
}

const envValueKey = "value"
