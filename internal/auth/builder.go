package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
	"github.com/vyrodovalexey/jwtguard/internal/cache"
	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const (
	defaultBreakerOpenTimeout = 30 * time.Second
	loginAlgorithm            = "HS256"
)

// NewParsersFromConfig builds the parsers enabled in cfg. Secrets in cfg
// must already be resolved. store backs the key set cache of the external
// identity provider.
func NewParsersFromConfig(
	cfg *config.Config,
	store cache.Cache,
	logger observability.Logger,
	metrics *jwt.Metrics,
) ([]jwt.Parser, error) {
	if cfg == nil || !cfg.JWT.Enabled {
		return nil, ErrNoParser
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	parserOpts := []jwt.ParserOption{jwt.WithParserLogger(logger)}
	if metrics != nil {
		parserOpts = append(parserOpts, jwt.WithParserMetrics(metrics))
	}

	jwtCfg := cfg.JWT
	parsers := []jwt.Parser{
		jwt.NewInternalParser(internalParserConfig(jwtCfg), []byte(jwtCfg.HSKey), parserOpts...),
	}

	auth0 := jwtCfg.Auth0
	if auth0.Enabled {
		resolver, err := newJWKSResolver(auth0, store, logger, metrics)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, jwt.NewStandardParser(jwt.ParserConfig{
			RequiredAudience:  auth0.Audience,
			RequiredIssuer:    auth0.Auth0Issuer(),
			AllowedAlgorithms: auth0.Algorithms,
			MetadataKey:       auth0.MetadataKey,
			ScopeKey:          auth0.ScopeKey,
			Verify:            true,
			ExpectedScopes:    jwtCfg.ExpectedScopes,
		}, resolver, parserOpts...))
	}

	if auth0.Login.Enabled {
		issuer := auth0.Login.Issuer
		if issuer == "" {
			issuer = auth0.Auth0Issuer()
		}
		parsers = append(parsers, jwt.NewLoginParser(jwt.ParserConfig{
			RequiredAudience:  auth0.Audience,
			RequiredIssuer:    issuer,
			AllowedAlgorithms: []string{loginAlgorithm},
			MetadataKey:       auth0.MetadataKey,
			ScopeKey:          auth0.ScopeKey,
			Verify:            true,
			ExpectedScopes:    jwtCfg.ExpectedScopes,
		}, []byte(auth0.Login.HSKey), parserOpts...))
	}

	return parsers, nil
}

func internalParserConfig(cfg config.JWTConfig) jwt.ParserConfig {
	issuer := cfg.Internal.Issuer
	if issuer == "" {
		issuer = cfg.ProxyURL
	}
	audience := cfg.Internal.Audience
	if audience == "" {
		audience = cfg.ProxyURL
	}
	metadataKey := cfg.Internal.MetadataKey
	if metadataKey == "" {
		metadataKey = config.DefaultInternalMeta
	}
	scopeKey := cfg.Internal.ScopeKey
	if scopeKey == "" {
		scopeKey = config.DefaultInternalScope
	}

	return jwt.ParserConfig{
		RequiredAudience:  audience,
		RequiredIssuer:    issuer,
		AllowedAlgorithms: cfg.Internal.Algorithms,
		MetadataKey:       metadataKey,
		ScopeKey:          scopeKey,
		Verify:            true,
		ExpectedScopes:    cfg.ExpectedScopes,
	}
}

func newJWKSResolver(
	cfg config.Auth0Config,
	store cache.Cache,
	logger observability.Logger,
	metrics *jwt.Metrics,
) (*jwt.JWKSResolver, error) {
	opts := []jwt.JWKSOption{
		jwt.WithJWKSLogger(logger),
		jwt.WithJWKSCacheKey(cfg.JWKSCacheKey),
		jwt.WithJWKSTTL(cfg.JWKSTTL.OrDefault(config.DefaultJWKSTTL)),
		jwt.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout.OrDefault(config.DefaultJWKSTimeout)}),
	}
	if metrics != nil {
		opts = append(opts, jwt.WithJWKSMetrics(metrics))
	}
	if cb := cfg.CircuitBreaker; cb.Enabled {
		opts = append(opts, jwt.WithCircuitBreaker(cb.MaxFailures, cb.OpenTimeout.OrDefault(defaultBreakerOpenTimeout)))
	}

	resolver, err := jwt.NewJWKSResolver(cfg.KeySetURL(), store, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create key set resolver: %w", err)
	}
	return resolver, nil
}

// NewGuardFromConfig builds a guard selecting between every parser enabled
// in cfg. The production flag comes from cfg.
func NewGuardFromConfig(
	cfg *config.Config,
	store cache.Cache,
	logger observability.Logger,
	opts ...GuardOption,
) (*Guard, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	parsers, err := NewParsersFromConfig(cfg, store, logger, nil)
	if err != nil {
		return nil, err
	}

	guardOpts := []GuardOption{
		WithGuardLogger(logger),
		WithProductionFunc(cfg.IsProduction),
	}
	guardOpts = append(guardOpts, opts...)

	return NewGuard(GuardConfig{
		IgnoreValidation: cfg.IgnoreJWTValidation,
		Selector:         NewSelector(parsers...),
	}, guardOpts...)
}
