// Package observability provides structured logging and tracing helpers
// shared by the token verification and authorization packages.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("token decoded",
//	    observability.String("parser", parser.String()),
//	)
//
// Components default to NopLogger and accept a logger through functional
// options.
//
// # Tracing
//
// StartSpan opens spans on the global OpenTelemetry tracer provider. NewTracer
// installs an SDK provider exporting over OTLP gRPC when tracing is enabled:
//
//	tracer, err := observability.NewTracer(cfg.Tracing)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
// With tracing disabled the global provider stays a no-op.
package observability
