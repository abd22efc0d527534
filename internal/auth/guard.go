package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
	"github.com/vyrodovalexey/jwtguard/internal/authz"
	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// GuardConfig configures an endpoint guard.
type GuardConfig struct {
	// IgnoreValidation skips authentication and authorization entirely
	// outside production. It has no effect in production.
	IgnoreValidation bool

	// Parser, when set, decodes every token regardless of its issuer.
	Parser jwt.Parser

	// Selector picks a parser by token issuer when Parser is nil.
	Selector *Selector
}

// Guard authenticates bearer tokens and authorizes requests against
// predicates.
type Guard struct {
	config         GuardConfig
	logger         observability.Logger
	metrics        *Metrics
	paramFunc      ParamFunc
	productionFunc func() bool
}

// GuardOption is a functional option for the guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger.
func WithGuardLogger(logger observability.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithGuardMetrics sets the metrics.
func WithGuardMetrics(metrics *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = metrics
	}
}

// WithParamFunc sets how route parameters are read from a request. By
// default predicates fall back to r.PathValue.
func WithParamFunc(fn ParamFunc) GuardOption {
	return func(g *Guard) {
		g.paramFunc = fn
	}
}

// WithProductionFunc sets how the guard decides it runs in production. The
// function is called once per Protect call for the validation bypass and
// again by environment predicates on each request. Defaults to
// config.IsProduction.
func WithProductionFunc(fn func() bool) GuardOption {
	return func(g *Guard) {
		if fn != nil {
			g.productionFunc = fn
		}
	}
}

// NewGuard creates a new endpoint guard.
func NewGuard(cfg GuardConfig, opts ...GuardOption) (*Guard, error) {
	if cfg.Parser == nil && (cfg.Selector == nil || len(cfg.Selector.Parsers()) == 0) {
		return nil, ErrNoParser
	}

	g := &Guard{
		config:         cfg,
		logger:         observability.NopLogger(),
		productionFunc: config.IsProduction,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("")
	}

	return g, nil
}

// Authenticate extracts the bearer token of r and decodes it with the
// parser for its issuer.
func (g *Guard) Authenticate(r *http.Request) (jwt.Identity, []string, error) {
	token := ExtractBearerToken(r)
	if token == "" {
		return nil, nil, ErrNoCredentials
	}

	header, claims, err := jwt.ParseUnverified(token)
	if err != nil {
		return nil, nil, err
	}

	parser := g.config.Parser
	if parser == nil {
		parser, err = g.config.Selector.Select(header, claims)
		if err != nil {
			return nil, nil, err
		}
	}

	return parser.Decode(r.Context(), token, header)
}

// authorize authenticates r and evaluates p. On success it returns the
// request context carrying the caller's claims and scopes.
func (g *Guard) authorize(r *http.Request, p authz.Predicate, params map[string]string) (context.Context, error) {
	identity, scopes, err := g.Authenticate(r)
	if err != nil {
		g.logger.WithContext(r.Context()).Warn("authentication failed",
			observability.String("path", r.URL.Path),
			observability.String("method", r.Method),
			observability.Error(err),
		)
		return nil, err
	}

	in := authz.NewInput(identity, scopes, r, params)
	in.ProductionFunc = g.productionFunc
	if !p.Evaluate(in) {
		err := &DeniedError{Reasons: in.Reasons()}
		g.logger.WithContext(r.Context()).Warn("permission denied",
			observability.String("path", r.URL.Path),
			observability.String("method", r.Method),
			observability.String("reason", err.Reason()),
		)
		return nil, err
	}

	return ContextWithScopes(ContextWithClaims(r.Context(), identity), scopes), nil
}

// guarded holds what one Protect call decided up front.
type guarded struct {
	predicate authz.Predicate
	skip      bool
}

func (g *Guard) guard(p authz.Predicate) guarded {
	if p == nil {
		p = authz.Allow()
	}
	production := g.productionFunc()
	return guarded{
		predicate: p,
		skip:      !production && g.config.IgnoreValidation,
	}
}

func (g *Guard) record(start time.Time, err error) {
	result := ResultAllowed
	if err != nil {
		result = ResultUnauthenticated
		if ClassifyError(err).Status == http.StatusForbidden {
			result = ResultForbidden
		}
	}
	g.metrics.RecordRequest(result, time.Since(start))
}
