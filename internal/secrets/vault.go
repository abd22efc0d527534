package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// DefaultVaultTimeout bounds a single Vault request.
const DefaultVaultTimeout = 10 * time.Second

// VaultProvider reads secrets from a Vault KV v2 engine. Paths have the
// form mount/path; a path without a mount uses the default mount.
type VaultProvider struct {
	api          *vaultapi.Client
	defaultMount string
	logger       observability.Logger
}

// NewVaultProvider creates a provider for the Vault server in cfg,
// authenticating with its token.
func NewVaultProvider(cfg config.VaultConfig, logger observability.Logger) (*VaultProvider, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: vault address is required", ErrProviderNotConfigured)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = DefaultVaultTimeout

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = config.DefaultVaultMount
	}

	return &VaultProvider{
		api:          api,
		defaultMount: mount,
		logger:       logger.With(observability.String("component", "vault")),
	}, nil
}

// Type returns the provider type
func (p *VaultProvider) Type() ProviderType {
	return ProviderTypeVault
}

// GetSecret reads the latest version of the secret at path.
func (p *VaultProvider) GetSecret(ctx context.Context, path string) (*Secret, error) {
	mount, secretPath := p.splitPath(path)
	if secretPath == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	fullPath := fmt.Sprintf("%s/data/%s", mount, secretPath)
	secret, err := p.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}

	// Deleted secrets keep their metadata with data: null.
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}

	result := &Secret{
		Path: fullPath,
		Data: make(map[string][]byte, len(data)),
	}
	for k, v := range data {
		result.Data[k] = valueBytes(v)
	}
	if metadata, ok := secret.Data["metadata"].(map[string]any); ok {
		if version, ok := metadata["version"]; ok {
			result.Version = fmt.Sprint(version)
		}
	}

	p.logger.Debug("secret read", observability.String("path", fullPath))
	return result, nil
}

func (p *VaultProvider) splitPath(path string) (mount, secretPath string) {
	path = strings.Trim(path, "/")
	mount, secretPath, found := strings.Cut(path, "/")
	if !found {
		return p.defaultMount, mount
	}
	return mount, secretPath
}

func valueBytes(v any) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case json.Number:
		return []byte(t.String())
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return []byte(fmt.Sprint(t))
		}
		return b
	}
}
