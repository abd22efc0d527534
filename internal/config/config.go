package config

import (
	"strings"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Default claim locations for tokens issued by the external identity provider.
const (
	DefaultMetadataKey = "https://gdm.sensynehealth.com/metadata"
	DefaultScopeKey    = "https://gdm.sensynehealth.com/scope"
)

// Cache backend types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Default values.
const (
	DefaultServerAddr      = ":5000"
	DefaultJWKSTTL         = 24 * time.Hour
	DefaultJWKSTimeout     = 5 * time.Second
	DefaultCacheMaxEntries = 1000
	DefaultVaultMount      = "secret"
	DefaultInternalScope   = "scope"
	DefaultInternalMeta    = "metadata"
)

// Config is the complete service configuration.
type Config struct {
	// Environment names the deployment, e.g. DEVELOPMENT or PRODUCTION.
	Environment string `yaml:"environment"`

	// IgnoreJWTValidation bypasses the endpoint guard outside production.
	IgnoreJWTValidation bool `yaml:"ignoreJwtValidation"`

	Server  ServerConfig               `yaml:"server"`
	Log     observability.LogConfig    `yaml:"log"`
	Tracing observability.TracerConfig `yaml:"tracing"`
	JWT     JWTConfig                  `yaml:"jwt"`
	Cache   CacheConfig                `yaml:"cache"`
	Vault   VaultConfig                `yaml:"vault"`

	// Policies maps a policy name to a CEL expression.
	Policies map[string]string `yaml:"policies,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`
}

// JWTConfig configures token verification.
type JWTConfig struct {
	// Enabled turns on JWT handling. HSKey and ProxyURL are required when set.
	Enabled bool `yaml:"enabled"`

	// HSKey is the shared secret for internally issued tokens. It may be a
	// vault reference of the form vault:mount/path#key.
	HSKey string `yaml:"hsKey" validate:"required_if=Enabled true"`

	// ProxyURL is the base URL of the service that mints system tokens.
	ProxyURL string `yaml:"proxyUrl" validate:"required_if=Enabled true,omitempty,url"`

	// Internal configures the parser for internally issued tokens.
	Internal IssuerConfig `yaml:"internal"`

	// Auth0 configures the external identity provider.
	Auth0 Auth0Config `yaml:"auth0"`

	// ExpectedScopes, when set, must all be present in every decoded token.
	ExpectedScopes []string `yaml:"expectedScopes,omitempty"`
}

// IssuerConfig holds the claim requirements of one token issuer.
type IssuerConfig struct {
	Issuer      string   `yaml:"issuer"`
	Audience    string   `yaml:"audience"`
	Algorithms  []string `yaml:"algorithms,omitempty" validate:"dive,oneof=HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512 PS256 PS384 PS512"`
	MetadataKey string   `yaml:"metadataKey,omitempty"`
	ScopeKey    string   `yaml:"scopeKey,omitempty"`
}

// Auth0Config configures tokens issued by the external identity provider.
type Auth0Config struct {
	Enabled bool `yaml:"enabled"`

	// Domain is the provider tenant domain. Issuer and JWKS URL are derived
	// from it unless set explicitly.
	Domain   string `yaml:"domain"`
	Audience string `yaml:"audience"`
	Issuer   string `yaml:"issuer,omitempty"`
	JWKSURL  string `yaml:"jwksUrl,omitempty" validate:"omitempty,url"`

	MetadataKey string   `yaml:"metadataKey"`
	ScopeKey    string   `yaml:"scopeKey"`
	Algorithms  []string `yaml:"algorithms,omitempty"`

	// JWKSCacheKey overrides the cache key the key set is stored under.
	JWKSCacheKey string   `yaml:"jwksCacheKey,omitempty"`
	JWKSTTL      Duration `yaml:"jwksTtl,omitempty"`
	FetchTimeout Duration `yaml:"fetchTimeout,omitempty"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`

	// Login configures the HMAC-signed login tokens minted by the provider.
	Login LoginConfig `yaml:"login"`
}

// LoginConfig configures the login token parser.
type LoginConfig struct {
	Enabled bool   `yaml:"enabled"`
	HSKey   string `yaml:"hsKey" validate:"required_if=Enabled true"`
	Issuer  string `yaml:"issuer"`
}

// CircuitBreakerConfig configures the breaker around key set downloads.
type CircuitBreakerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	MaxFailures uint32   `yaml:"maxFailures,omitempty"`
	OpenTimeout Duration `yaml:"openTimeout,omitempty"`
}

// CacheConfig selects the key-value store backing the key set cache.
type CacheConfig struct {
	Type       string      `yaml:"type" validate:"omitempty,oneof=memory redis"`
	TTL        Duration    `yaml:"ttl,omitempty"`
	MaxEntries int         `yaml:"maxEntries,omitempty" validate:"gte=0"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// URL format: redis://[user:password@]host:port[/db]
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
	PoolSize  int    `yaml:"poolSize,omitempty" validate:"gte=0"`
}

// VaultConfig configures the optional secret source.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true,omitempty,url"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Environment: string(EnvironmentDevelopment),
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Log:     observability.DefaultLogConfig(),
		Tracing: observability.DefaultTracerConfig(),
		JWT: JWTConfig{
			Enabled: true,
			Internal: IssuerConfig{
				Algorithms:  []string{"HS512"},
				MetadataKey: DefaultInternalMeta,
				ScopeKey:    DefaultInternalScope,
			},
			Auth0: Auth0Config{
				MetadataKey:  DefaultMetadataKey,
				ScopeKey:     DefaultScopeKey,
				Algorithms:   []string{"RS256"},
				JWKSTTL:      Duration(DefaultJWKSTTL),
				FetchTimeout: Duration(DefaultJWKSTimeout),
			},
		},
		Cache: CacheConfig{
			Type:       CacheTypeMemory,
			MaxEntries: DefaultCacheMaxEntries,
		},
		Vault: VaultConfig{
			Mount: DefaultVaultMount,
		},
	}
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return Environment(c.Environment).IsProduction()
}

// Auth0Issuer returns the issuer expected on provider tokens.
func (c *Auth0Config) Auth0Issuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	if c.Domain == "" {
		return ""
	}
	return c.domainURL() + "/"
}

// KeySetURL returns the JWKS endpoint of the provider.
func (c *Auth0Config) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	if c.Domain == "" {
		return ""
	}
	return c.domainURL() + "/.well-known/jwks.json"
}

// domainURL returns the domain as an https URL without a trailing slash.
// Domains given with a scheme are kept as is.
func (c *Auth0Config) domainURL() string {
	domain := strings.TrimSuffix(c.Domain, "/")
	if strings.HasPrefix(domain, "https://") || strings.HasPrefix(domain, "http://") {
		return domain
	}
	return "https://" + domain
}
