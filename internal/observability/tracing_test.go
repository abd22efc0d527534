package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// restoreGlobals puts back the global provider and propagator after a test
// that installs its own.
func restoreGlobals(t *testing.T) {
	t.Helper()

	provider := otel.GetTracerProvider()
	propagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagator)
	})
}

func TestDefaultTracerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultTracerConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SamplingRate)
	assert.True(t, cfg.Insecure)
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(DefaultTracerConfig())
	require.NoError(t, err)

	assert.False(t, tracer.Enabled())
	assert.NoError(t, tracer.ForceFlush(context.Background()))
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_ExportsSpans(t *testing.T) {
	restoreGlobals(t)

	exporter := tracetest.NewInMemoryExporter()
	cfg := DefaultTracerConfig()
	cfg.Enabled = true

	tracer, err := NewTracer(cfg, WithSpanExporter(exporter), WithServiceVersion("1.2.3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	assert.True(t, tracer.Enabled())

	ctx, span := StartSpan(context.Background(), "jwt.Decode")
	assert.NotEmpty(t, TraceIDFromContext(ContextWithSpanTraceID(ctx)))
	span.End()

	require.NoError(t, tracer.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "jwt.Decode", spans[0].Name)

	attrs := spans[0].Resource.Set()
	name, ok := attrs.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, DefaultServiceName, name.AsString())
	ver, ok := attrs.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", ver.AsString())

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestNewTracer_ZeroSamplingRate(t *testing.T) {
	restoreGlobals(t)

	exporter := tracetest.NewInMemoryExporter()
	cfg := TracerConfig{Enabled: true, SamplingRate: 0}

	tracer, err := NewTracer(cfg, WithSpanExporter(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "cache.get")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, tracer.ForceFlush(context.Background()))
	assert.Empty(t, exporter.GetSpans())
}

func TestNewTracer_OTLPEndpoint(t *testing.T) {
	restoreGlobals(t)

	cfg := DefaultTracerConfig()
	cfg.Enabled = true
	cfg.OTLPEndpoint = "localhost:4317"

	// The gRPC connection is established lazily.
	tracer, err := NewTracer(cfg)
	require.NoError(t, err)
	assert.True(t, tracer.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tracer.Shutdown(ctx)
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want string
	}{
		{name: "always", rate: 1.0, want: sdktrace.AlwaysSample().Description()},
		{name: "above one", rate: 2.5, want: sdktrace.AlwaysSample().Description()},
		{name: "never", rate: 0, want: sdktrace.NeverSample().Description()},
		{name: "negative", rate: -1, want: sdktrace.NeverSample().Description()},
		{name: "ratio", rate: 0.25, want: sdktrace.TraceIDRatioBased(0.25).Description()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, createSampler(tt.rate).Description())
		})
	}
}

func TestBuildOTLPExporterOptions(t *testing.T) {
	t.Parallel()

	cfg := TracerConfig{OTLPEndpoint: "collector:4317"}
	assert.Len(t, buildOTLPExporterOptions(cfg), 4)

	cfg.Insecure = true
	assert.Len(t, buildOTLPExporterOptions(cfg), 5)
}
