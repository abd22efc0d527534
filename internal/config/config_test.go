package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.JWT.HSKey = "key_test"
	cfg.JWT.ProxyURL = "http://someurl.com/"
	return cfg
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.True(t, cfg.JWT.Enabled)
	assert.Equal(t, DefaultMetadataKey, cfg.JWT.Auth0.MetadataKey)
	assert.Equal(t, DefaultScopeKey, cfg.JWT.Auth0.ScopeKey)
	assert.Equal(t, DefaultJWKSTTL, cfg.JWT.Auth0.JWKSTTL.Duration())
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		contains string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:     "missing hs key",
			mutate:   func(c *Config) { c.JWT.HSKey = "" },
			wantErr:  true,
			contains: "JWT.HSKey",
		},
		{
			name:     "missing proxy url",
			mutate:   func(c *Config) { c.JWT.ProxyURL = "" },
			wantErr:  true,
			contains: "JWT.ProxyURL",
		},
		{
			name: "jwt disabled needs no secrets",
			mutate: func(c *Config) {
				c.JWT.Enabled = false
				c.JWT.HSKey = ""
				c.JWT.ProxyURL = ""
			},
		},
		{
			name:     "sampling rate above one",
			mutate:   func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantErr:  true,
			contains: "Tracing.SamplingRate",
		},
		{
			name:     "bad proxy url",
			mutate:   func(c *Config) { c.JWT.ProxyURL = "not a url" },
			wantErr:  true,
			contains: "valid URL",
		},
		{
			name:     "unknown cache type",
			mutate:   func(c *Config) { c.Cache.Type = "memcached" },
			wantErr:  true,
			contains: "Cache.Type",
		},
		{
			name:     "redis without url",
			mutate:   func(c *Config) { c.Cache.Type = CacheTypeRedis },
			wantErr:  true,
			contains: "Cache.Redis.URL",
		},
		{
			name:     "auth0 enabled without domain",
			mutate:   func(c *Config) { c.JWT.Auth0.Enabled = true },
			wantErr:  true,
			contains: "JWT.Auth0.Domain",
		},
		{
			name: "auth0 enabled with domain",
			mutate: func(c *Config) {
				c.JWT.Auth0.Enabled = true
				c.JWT.Auth0.Domain = "tenant.eu.auth0.com"
			},
		},
		{
			name:     "unknown algorithm",
			mutate:   func(c *Config) { c.JWT.Internal.Algorithms = []string{"none"} },
			wantErr:  true,
			contains: "Algorithms",
		},
		{
			name:     "login enabled without key",
			mutate:   func(c *Config) { c.JWT.Auth0.Login.Enabled = true },
			wantErr:  true,
			contains: "Login.HSKey",
		},
		{
			name:     "vault enabled without address",
			mutate:   func(c *Config) { c.Vault.Enabled = true },
			wantErr:  true,
			contains: "Vault.Address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	t.Parallel()

	assert.Error(t, Validate(nil))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a: b", ValidationErrors{{Path: "a", Message: "b"}}.Error())

	multi := ValidationErrors{{Path: "a", Message: "b"}, {Message: "c"}}.Error()
	assert.Contains(t, multi, "2 validation errors")
	assert.Contains(t, multi, "2. c")
}

func TestAuth0Config_Derived(t *testing.T) {
	t.Parallel()

	cfg := Auth0Config{Domain: "draysonhealth.eu.auth0.com"}
	assert.Equal(t, "https://draysonhealth.eu.auth0.com/", cfg.Auth0Issuer())
	assert.Equal(t, "https://draysonhealth.eu.auth0.com/.well-known/jwks.json", cfg.KeySetURL())

	cfg.Issuer = "http://epr/"
	cfg.JWKSURL = "http://localhost/jwks"
	assert.Equal(t, "http://epr/", cfg.Auth0Issuer())
	assert.Equal(t, "http://localhost/jwks", cfg.KeySetURL())

	withScheme := Auth0Config{Domain: "https://draysonhealth.eu.auth0.com/"}
	assert.Equal(t, "https://draysonhealth.eu.auth0.com/", withScheme.Auth0Issuer())
	assert.Equal(t, "https://draysonhealth.eu.auth0.com/.well-known/jwks.json", withScheme.KeySetURL())

	assert.Empty(t, (&Auth0Config{}).Auth0Issuer())
	assert.Empty(t, (&Auth0Config{}).KeySetURL())
}

func TestDuration_OrDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, Duration(0).OrDefault(time.Second))
	assert.Equal(t, time.Minute, Duration(time.Minute).OrDefault(time.Second))
}

func TestEnvironment_IsProduction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  Environment
		want bool
	}{
		{"PRODUCTION", true},
		{"production", true},
		{" PRODUCTION ", true},
		{"DEVELOPMENT", false},
		{"", false},
		{"PRODUCTION-LIKE", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.env), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.env.IsProduction())
		})
	}
}

func TestCurrentEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "PRODUCTION")
	assert.True(t, IsProduction())

	t.Setenv(EnvironmentVariable, "DEVELOPMENT")
	assert.False(t, IsProduction())
	assert.Equal(t, EnvironmentDevelopment, CurrentEnvironment())
}
