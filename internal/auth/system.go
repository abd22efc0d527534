package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const (
	// DefaultSystemTokenTimeout bounds a single system token request.
	DefaultSystemTokenTimeout = 10 * time.Second

	systemTokenPath    = "/dhos/v1/system/%s/jwt"
	maxSystemTokenSize = 64 << 10
)

// SystemTokenClient obtains tokens that identify a system, rather than a
// person, from the platform's token service.
type SystemTokenClient struct {
	proxyURL string
	client   *http.Client
	logger   observability.Logger
	metrics  *Metrics
}

// SystemTokenOption is a functional option for the system token client.
type SystemTokenOption func(*SystemTokenClient)

// WithSystemTokenHTTPClient sets the HTTP client.
func WithSystemTokenHTTPClient(client *http.Client) SystemTokenOption {
	return func(c *SystemTokenClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithSystemTokenLogger sets the logger.
func WithSystemTokenLogger(logger observability.Logger) SystemTokenOption {
	return func(c *SystemTokenClient) {
		c.logger = logger
	}
}

// WithSystemTokenMetrics sets the metrics.
func WithSystemTokenMetrics(metrics *Metrics) SystemTokenOption {
	return func(c *SystemTokenClient) {
		c.metrics = metrics
	}
}

// NewSystemTokenClient creates a client for the token service behind
// proxyURL.
func NewSystemTokenClient(proxyURL string, opts ...SystemTokenOption) *SystemTokenClient {
	c := &SystemTokenClient{
		proxyURL: strings.TrimSuffix(proxyURL, "/"),
		client:   &http.Client{Timeout: DefaultSystemTokenTimeout},
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("")
	}

	return c
}

type systemTokenResponse struct {
	JWT string `json:"jwt"`
}

// SystemJWT fetches a token for systemID.
func (c *SystemTokenClient) SystemJWT(ctx context.Context, systemID string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "auth.SystemJWT",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("system.id", systemID)),
	)
	defer span.End()

	token, err := c.fetch(ctx, systemID)
	if err != nil {
		c.metrics.RecordSystemToken("error")
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithContext(ctx).Error("failed to fetch system JWT",
			observability.String("system_id", systemID),
			observability.Error(err),
		)
		return "", err
	}

	c.metrics.RecordSystemToken("success")
	return token, nil
}

func (c *SystemTokenClient) fetch(ctx context.Context, systemID string) (string, error) {
	if systemID == "" {
		return "", fmt.Errorf("%w: system id is empty", ErrSystemToken)
	}

	endpoint := c.proxyURL + fmt.Sprintf(systemTokenPath, url.PathEscape(systemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSystemToken, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSystemToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrSystemToken, resp.StatusCode)
	}

	var body systemTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSystemTokenSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: invalid response: %w", ErrSystemToken, err)
	}
	if body.JWT == "" {
		return "", fmt.Errorf("%w: response has no jwt", ErrSystemToken)
	}

	return body.JWT, nil
}

// AddSystemJWT sets a bearer Authorization header for systemID on header,
// keeping every other header. A nil header is allocated.
func (c *SystemTokenClient) AddSystemJWT(ctx context.Context, header http.Header, systemID string) (http.Header, error) {
	token, err := c.SystemJWT(ctx, systemID)
	if err != nil {
		return header, err
	}

	if header == nil {
		header = make(http.Header)
	}
	header.Set(HeaderAuthorization, AuthSchemeBearer+token)
	return header, nil
}
