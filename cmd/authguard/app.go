package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vyrodovalexey/jwtguard/internal/auth"
	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
	"github.com/vyrodovalexey/jwtguard/internal/authz"
	"github.com/vyrodovalexey/jwtguard/internal/cache"
	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/health"
	"github.com/vyrodovalexey/jwtguard/internal/middleware"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
	"github.com/vyrodovalexey/jwtguard/internal/secrets"
)

const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// application holds the wired components of the service.
type application struct {
	config   *config.Config
	logger   observability.Logger
	store    cache.Cache
	guard    *auth.Guard
	policies map[string]authz.Predicate
	system   *auth.SystemTokenClient
	checker  *health.Checker
	registry *prometheus.Registry
}

// newApplication resolves secrets in cfg and builds every component the
// routes depend on.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	resolver, err := secrets.NewResolverFromConfig(cfg.Vault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets resolver: %w", err)
	}
	if err := resolver.ResolveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cacheMetrics := cache.NewMetrics("")
	cacheMetrics.MustRegister(registry)
	jwt.GetSharedMetrics().MustRegister(registry)
	middleware.GetMetrics().MustRegister(registry)

	store, err := cache.New(cfg.Cache, logger, cache.WithMetrics(cacheMetrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	guardMetrics := auth.NewMetrics("")
	guardMetrics.MustRegister(registry)

	guard, err := auth.NewGuardFromConfig(cfg, store, logger,
		auth.WithGuardMetrics(guardMetrics),
		auth.WithParamFunc(auth.ChiParams),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create guard: %w", err)
	}

	policies, err := authz.CompilePolicies(cfg.Policies, authz.WithExpressionLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to compile policies: %w", err)
	}

	var system *auth.SystemTokenClient
	if cfg.JWT.ProxyURL != "" {
		system = auth.NewSystemTokenClient(cfg.JWT.ProxyURL,
			auth.WithSystemTokenLogger(logger),
			auth.WithSystemTokenMetrics(guardMetrics),
		)
	}

	checker := health.NewChecker(version)
	checker.RegisterCheck("cache", health.CacheCheck(store), true)
	if cfg.JWT.Auth0.Enabled {
		checker.RegisterCheck("jwks", health.HTTPCheck(cfg.JWT.Auth0.KeySetURL(), nil), false)
	}

	return &application{
		config:   cfg,
		logger:   logger,
		store:    store,
		guard:    guard,
		policies: policies,
		system:   system,
		checker:  checker,
		registry: registry,
	}, nil
}

// server builds the HTTP server for the application routes.
func (a *application) server() *http.Server {
	return &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           a.routes(),
		ReadTimeout:       a.config.Server.ReadTimeout.OrDefault(defaultReadTimeout),
		WriteTimeout:      a.config.Server.WriteTimeout.OrDefault(defaultWriteTimeout),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
}

// close releases the cache backend.
func (a *application) close() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil && !errors.Is(err, cache.ErrClosed) {
		return err
	}
	return nil
}
