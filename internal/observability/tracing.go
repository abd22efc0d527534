package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span in this module.
const TracerName = "github.com/vyrodovalexey/jwtguard"

// OTLP exporter defaults.
const (
	DefaultOTLPRetryInitialInterval = 1 * time.Second
	DefaultOTLPRetryMaxInterval     = 30 * time.Second
	DefaultOTLPRetryMaxElapsedTime  = 1 * time.Minute
	DefaultOTLPTimeout              = 10 * time.Second
	DefaultOTLPReconnectionPeriod   = 10 * time.Second
)

// DefaultServiceName is reported as service.name when none is configured.
const DefaultServiceName = "authguard"

// TracerConfig configures the process tracer provider.
type TracerConfig struct {
	// Enabled installs an SDK tracer provider. When false spans are no-ops.
	Enabled bool `yaml:"enabled"`

	ServiceName string `yaml:"serviceName,omitempty"`

	// OTLPEndpoint is the host:port of an OTLP gRPC collector. Without it
	// spans are sampled and recorded but not exported.
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`

	// Insecure disables TLS on the collector connection.
	Insecure bool `yaml:"insecure"`

	SamplingRate float64 `yaml:"samplingRate" validate:"gte=0,lte=1"`
}

// DefaultTracerConfig returns tracing disabled with full sampling once
// enabled.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		ServiceName:  DefaultServiceName,
		Insecure:     true,
		SamplingRate: 1.0,
	}
}

// Tracer owns the SDK tracer provider installed for the process.
type Tracer struct {
	provider *sdktrace.TracerProvider
	config   TracerConfig
}

// TracerOption is a functional option for the tracer.
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	exporter sdktrace.SpanExporter
	version  string
}

// WithSpanExporter replaces the OTLP exporter.
func WithSpanExporter(exporter sdktrace.SpanExporter) TracerOption {
	return func(o *tracerOptions) {
		o.exporter = exporter
	}
}

// WithServiceVersion sets service.version on the tracer resource.
func WithServiceVersion(version string) TracerOption {
	return func(o *tracerOptions) {
		o.version = version
	}
}

// NewTracer builds a tracer provider from cfg and registers it, together with
// the W3C trace context propagator, as the global provider. A disabled config
// leaves the global provider untouched.
func NewTracer(cfg TracerConfig, opts ...TracerOption) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{config: cfg}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	o := &tracerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	exporter := o.exporter
	if exporter == nil && cfg.OTLPEndpoint != "" {
		otlp, err := otlptracegrpc.New(context.Background(), buildOTLPExporterOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if o.version != "" {
		attrs = append(attrs, semconv.ServiceVersion(o.version))
	}
	// A schemaless resource merges with any default schema URL.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, err
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(createSampler(cfg.SamplingRate))),
	}
	if exporter != nil {
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(providerOpts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{provider: provider, config: cfg}, nil
}

// Enabled reports whether an SDK provider is installed.
func (t *Tracer) Enabled() bool {
	return t.provider != nil
}

// ForceFlush exports every finished span still held by the batcher.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func createSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func buildOTLPExporterOptions(cfg TracerConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithTimeout(DefaultOTLPTimeout),
		otlptracegrpc.WithReconnectionPeriod(DefaultOTLPReconnectionPeriod),
		otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: DefaultOTLPRetryInitialInterval,
			MaxInterval:     DefaultOTLPRetryMaxInterval,
			MaxElapsedTime:  DefaultOTLPRetryMaxElapsedTime,
		}),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

// StartSpan starts a span on the globally registered tracer provider. When no
// provider is installed the span is a no-op.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// ContextWithSpanTraceID copies the trace ID of the active span, if any, into
// the logging context.
func ContextWithSpanTraceID(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ctx
	}
	return ContextWithTraceID(ctx, sc.TraceID().String())
}
