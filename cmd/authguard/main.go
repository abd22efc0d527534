// Package main is the entry point for the token-guarded sample service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	envFile     string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	if err := config.LoadDotEnv(flags.envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load environment file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting authguard",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.String("environment", cfg.Environment),
		observability.Bool("ignore_jwt_validation", cfg.IgnoreJWTValidation),
	)

	tracer := initTracer(cfg.Tracing, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := newApplication(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}

	run(app, tracer, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("AUTHGUARD_CONFIG_PATH", ""),
		"Path to an optional YAML configuration file")
	envFile := flag.String("env-file", getEnvOrDefault("AUTHGUARD_ENV_FILE", ".env"),
		"Path to an optional .env file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		envFile:     *envFile,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("authguard version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(cfg observability.LogConfig) observability.Logger {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// initTracer installs the global tracer provider when tracing is enabled.
func initTracer(cfg observability.TracerConfig, logger observability.Logger) *observability.Tracer {
	tracer, err := observability.NewTracer(cfg, observability.WithServiceVersion(version))
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	if tracer.Enabled() {
		logger.Info("tracing enabled",
			observability.String("service", cfg.ServiceName),
			observability.String("otlp_endpoint", cfg.OTLPEndpoint),
			observability.Float64("sampling_rate", cfg.SamplingRate),
		)
	}
	return tracer
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully.
func run(app *application, tracer *observability.Tracer, logger observability.Logger) {
	server := app.server()

	go func() {
		logger.Info("listening", observability.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", observability.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	timeout := app.config.Server.ShutdownTimeout.OrDefault(30 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.close(); err != nil {
		logger.Error("failed to release resources", observability.Error(err))
	}

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", observability.Error(err))
	}

	logger.Info("authguard stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
