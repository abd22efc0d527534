package jwt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Strategy names a token parsing strategy.
type Strategy string

// Parsing strategies.
const (
	StrategyBase     Strategy = "base"
	StrategyInternal Strategy = "internal"
	StrategyStandard Strategy = "standard"
	StrategyLogin    Strategy = "login"
)

// Log messages emitted when the standard parser cannot find a key.
const (
	msgNoKID        = "JWT provided with no kid field in header"
	msgKeyNotFound  = "Could not retrieve JWT key from header"
	msgDecodeFailed = "failed to decode JWT"
)

// ParserConfig holds the requirements a parser enforces.
type ParserConfig struct {
	// RequiredAudience must appear in the aud claim when one is present.
	RequiredAudience string

	// RequiredIssuer must equal the iss claim, which must be present when
	// issuer verification is on. It also identifies the parser in String.
	RequiredIssuer string

	// AllowedAlgorithms lists the accepted signing algorithms.
	AllowedAlgorithms []string

	// MetadataKey is the claim holding the issuer-specific metadata object.
	MetadataKey string

	// ScopeKey is the claim holding the scopes.
	ScopeKey string

	// Verify enables signature and registered-claim checks.
	Verify bool

	// ExpectedScopes, when set, must all be granted by the token.
	ExpectedScopes []string
}

// Parser decodes and verifies a token for one issuer.
type Parser interface {
	// Decode verifies token and returns its normalized identity and scopes.
	// header is the unverified header of token.
	Decode(ctx context.Context, token string, header Header) (Identity, []string, error)

	// Issuer returns the issuer this parser accepts.
	Issuer() string

	// Algorithms returns the accepted signing algorithms.
	Algorithms() []string

	// Strategy identifies the parsing strategy.
	Strategy() Strategy

	String() string
}

// ParserOption is a functional option shared by all parsers.
type ParserOption func(*BaseParser)

// WithParserLogger sets the logger.
func WithParserLogger(logger observability.Logger) ParserOption {
	return func(p *BaseParser) {
		p.logger = logger
	}
}

// WithParserMetrics sets the metrics.
func WithParserMetrics(metrics *Metrics) ParserOption {
	return func(p *BaseParser) {
		p.metrics = metrics
	}
}

// BaseParser holds configuration and normalization shared by every
// strategy. Its own Decode is not implemented.
type BaseParser struct {
	config  ParserConfig
	options VerificationOptions
	logger  observability.Logger
	metrics *Metrics
}

// NewBaseParser creates a parser that can normalize claims but not decode.
func NewBaseParser(cfg ParserConfig, opts ...ParserOption) *BaseParser {
	p := &BaseParser{
		config:  cfg,
		options: NewVerificationOptions(cfg.Verify),
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = GetSharedMetrics()
	}

	return p
}

// Config returns the parser configuration.
func (p *BaseParser) Config() ParserConfig {
	return p.config
}

// VerificationOptions returns the checks derived from the Verify flag.
func (p *BaseParser) VerificationOptions() VerificationOptions {
	return p.options
}

// Issuer returns the required issuer.
func (p *BaseParser) Issuer() string {
	return p.config.RequiredIssuer
}

// Algorithms returns the allowed signing algorithms.
func (p *BaseParser) Algorithms() []string {
	return p.config.AllowedAlgorithms
}

// Strategy returns StrategyBase.
func (p *BaseParser) Strategy() Strategy {
	return StrategyBase
}

// Decode always fails with ErrNotImplemented.
func (p *BaseParser) Decode(_ context.Context, _ string, _ Header) (Identity, []string, error) {
	return nil, nil, ErrNotImplemented
}

func (p *BaseParser) String() string {
	return "Base JwtParser with domain " + p.config.RequiredIssuer
}

// ParseAccessToken normalizes verified claims and enforces ExpectedScopes.
func (p *BaseParser) ParseAccessToken(claims map[string]any) (Identity, []string, error) {
	identity, scopes, err := NormalizeClaims(claims, p.config.MetadataKey, p.config.ScopeKey)
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, expected := range p.config.ExpectedScopes {
		if !slices.Contains(scopes, expected) {
			missing = append(missing, expected)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing %v", ErrInsufficientScope, missing)
	}

	return identity, scopes, nil
}

// decode is the pipeline shared by the concrete strategies: verify with
// key, check registered claims, normalize.
func (p *BaseParser) decode(
	ctx context.Context, strategy Strategy, name, token string, keyFunc gjwt.Keyfunc,
) (Identity, []string, error) {
	_, span := observability.StartSpan(ctx, "jwt.Decode",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("jwt.strategy", string(strategy)),
			attribute.String("jwt.issuer", p.config.RequiredIssuer),
		),
	)
	defer span.End()

	start := time.Now()
	identity, scopes, err := p.decodeClaims(token, keyFunc)
	if err != nil {
		p.metrics.RecordDecode(strategy, "error", time.Since(start))
		span.SetStatus(codes.Error, err.Error())
		p.logger.WithContext(ctx).Warn(msgDecodeFailed,
			observability.String("parser", name),
			observability.Error(err))
		return nil, nil, err
	}

	p.metrics.RecordDecode(strategy, "success", time.Since(start))
	return identity, scopes, nil
}

func (p *BaseParser) decodeClaims(token string, keyFunc gjwt.Keyfunc) (Identity, []string, error) {
	if token == "" {
		return nil, nil, ErrEmptyToken
	}

	claims, err := decodeClaims(token, p.options, p.config.AllowedAlgorithms, claimRequirements{
		audience: p.config.RequiredAudience,
		issuer:   p.config.RequiredIssuer,
	}, keyFunc)
	if err != nil {
		return nil, nil, err
	}

	return p.ParseAccessToken(claims)
}

// InternalParser verifies tokens minted by the platform itself with a
// shared HMAC secret.
type InternalParser struct {
	*BaseParser
	resolver KeyResolver
}

// NewInternalParser creates a parser for internally issued tokens.
func NewInternalParser(cfg ParserConfig, hsKey []byte, opts ...ParserOption) *InternalParser {
	return &InternalParser{
		BaseParser: NewBaseParser(cfg, opts...),
		resolver:   NewStaticKeyResolver(hsKey),
	}
}

// Strategy returns StrategyInternal.
func (p *InternalParser) Strategy() Strategy {
	return StrategyInternal
}

// Decode verifies token with the shared secret.
func (p *InternalParser) Decode(ctx context.Context, token string, header Header) (Identity, []string, error) {
	return p.decode(ctx, StrategyInternal, p.String(), token, func(*gjwt.Token) (any, error) {
		return p.resolver.ResolveKey(ctx, header)
	})
}

func (p *InternalParser) String() string {
	return "Internal JwtParser with domain " + p.config.RequiredIssuer
}

// StandardParser verifies tokens of the external identity provider with
// public keys from its published key set.
type StandardParser struct {
	*BaseParser
	resolver KeyResolver
}

// NewStandardParser creates a parser backed by resolver, usually a
// JWKSResolver.
func NewStandardParser(cfg ParserConfig, resolver KeyResolver, opts ...ParserOption) *StandardParser {
	return &StandardParser{
		BaseParser: NewBaseParser(cfg, opts...),
		resolver:   resolver,
	}
}

// Strategy returns StrategyStandard.
func (p *StandardParser) Strategy() Strategy {
	return StrategyStandard
}

// Decode resolves the key named by the header kid and verifies token.
func (p *StandardParser) Decode(ctx context.Context, token string, header Header) (Identity, []string, error) {
	var key any
	if p.options.VerifySignature {
		resolved, err := p.resolveKey(ctx, token, header)
		if err != nil {
			p.metrics.RecordDecode(StrategyStandard, "error", 0)
			return nil, nil, err
		}
		key = resolved
	}

	return p.decode(ctx, StrategyStandard, p.String(), token, func(*gjwt.Token) (any, error) {
		return key, nil
	})
}

func (p *StandardParser) resolveKey(ctx context.Context, token string, header Header) (any, error) {
	if header == nil {
		parsed, err := ParseUnverifiedHeader(token)
		if err != nil {
			return nil, err
		}
		header = parsed
	}

	key, err := p.resolver.ResolveKey(ctx, header)
	if err == nil {
		return key, nil
	}

	logger := p.logger.WithContext(ctx)
	var kre *KeyResolutionError
	if errors.As(err, &kre) && kre.Reason == ReasonMissingKID {
		logger.Warn(msgNoKID, observability.String("parser", p.String()))
	} else {
		logger.Warn(msgKeyNotFound,
			observability.String("parser", p.String()),
			observability.String("kid", header.KeyID()),
			observability.Error(err))
	}
	return nil, err
}

func (p *StandardParser) String() string {
	return "Auth0 standard JwtParser with domain " + p.config.RequiredIssuer
}

// LoginParser verifies the HMAC-signed login tokens issued by the external
// identity provider.
type LoginParser struct {
	*BaseParser
	resolver KeyResolver
}

// NewLoginParser creates a parser for provider login tokens.
func NewLoginParser(cfg ParserConfig, hsKey []byte, opts ...ParserOption) *LoginParser {
	return &LoginParser{
		BaseParser: NewBaseParser(cfg, opts...),
		resolver:   NewStaticKeyResolver(hsKey),
	}
}

// Strategy returns StrategyLogin.
func (p *LoginParser) Strategy() Strategy {
	return StrategyLogin
}

// Decode verifies token with the provider login secret.
func (p *LoginParser) Decode(ctx context.Context, token string, header Header) (Identity, []string, error) {
	return p.decode(ctx, StrategyLogin, p.String(), token, func(*gjwt.Token) (any, error) {
		return p.resolver.ResolveKey(ctx, header)
	})
}

func (p *LoginParser) String() string {
	return "Auth0 login JwtParser with domain " + p.config.RequiredIssuer
}

var (
	_ Parser = (*BaseParser)(nil)
	_ Parser = (*InternalParser)(nil)
	_ Parser = (*StandardParser)(nil)
	_ Parser = (*LoginParser)(nil)
)
