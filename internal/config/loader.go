package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Load builds the configuration: defaults, then the optional YAML file at
// path, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}

		f, err := os.Open(absPath) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		defer f.Close()

		if err := decodeInto(f, cfg); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader parses YAML from r on top of the defaults. Environment
// overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeInto(r, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	content := substituteEnvVars(string(data))
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" escapes a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if value, exists := os.LookupEnv(submatches[1]); exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with values from the process environment.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Environment, EnvironmentVariable)
	setBool(&cfg.IgnoreJWTValidation, "IGNORE_JWT_VALIDATION")

	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	setString(&cfg.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Tracing.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setFloat(&cfg.Tracing.SamplingRate, "TRACING_SAMPLING_RATE")

	setBool(&cfg.JWT.Enabled, "JWT_ENABLED")
	setString(&cfg.JWT.HSKey, "HS_KEY")
	setString(&cfg.JWT.ProxyURL, "PROXY_URL")
	setString(&cfg.JWT.Internal.Issuer, "HS_ISSUER")
	setString(&cfg.JWT.Internal.Audience, "HS_AUDIENCE")

	auth0 := &cfg.JWT.Auth0
	setBool(&auth0.Enabled, "AUTH0_ENABLED")
	setString(&auth0.Domain, "AUTH0_DOMAIN")
	setString(&auth0.Audience, "AUTH0_AUDIENCE")
	setString(&auth0.JWKSURL, "AUTH0_JWKS_URL")
	setString(&auth0.MetadataKey, "AUTH0_METADATA")
	setString(&auth0.ScopeKey, "AUTH0_SCOPE_KEY")
	setString(&auth0.JWKSCacheKey, "AUTH0_JWKS_CACHE_KEY")
	setBool(&auth0.Login.Enabled, "AUTH0_LOGIN_ENABLED")
	setString(&auth0.Login.HSKey, "AUTH0_HS_KEY")
	setString(&auth0.Login.Issuer, "AUTH0_LOGIN_ISSUER")

	setString(&cfg.Cache.Type, "CACHE_TYPE")
	setString(&cfg.Cache.Redis.URL, "REDIS_URL")
	if cfg.Cache.Redis.URL != "" && os.Getenv("CACHE_TYPE") == "" {
		cfg.Cache.Type = CacheTypeRedis
	}

	setString(&cfg.Vault.Address, "VAULT_ADDR")
	setString(&cfg.Vault.Token, "VAULT_TOKEN")
	if cfg.Vault.Address != "" {
		cfg.Vault.Enabled = true
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setFloat(dst *float64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}
