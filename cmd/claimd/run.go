package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/claimd/internal/config"
	httpserver "github.com/fyrsmithlabs/claimd/internal/http"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/mcp"
	"github.com/fyrsmithlabs/claimd/internal/telemetry"
)

// run loads configuration, wires dependencies and serves until ctx is
// cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Builds embeddings, the clause index, vocabulary and audit publishing
//  4. Serves HTTP or MCP stdio
//  5. Shuts down gracefully on cancellation
func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	telCfg := telemetryConfig(cfg)
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telCfg.Shutdown.Timeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logCfg, err := loggingConfig(cfg, opts.mcp)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if logCfg.Output.OTEL && tel.LoggerProvider() == nil {
		logger.Warn(ctx, "otel log output requested but telemetry is disabled")
	}
	logger.Info(ctx, "starting claimd",
		zap.String("version", version),
		zap.Bool("mcp", opts.mcp),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	if opts.mcp {
		return runStdioServer(ctx, deps, logger)
	}
	return runHTTPServer(ctx, cfg, deps, tel, logger)
}

func runHTTPServer(ctx context.Context, cfg *config.Config, deps *dependencies, tel *telemetry.Telemetry, logger *logging.Logger) error {
	srv, err := httpserver.NewServer(deps.service, logger, &httpserver.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		BodyLimit:    cfg.Server.BodyLimit,
		RateLimit: httpserver.RateLimitConfig{
			Enabled: cfg.RateLimit.Enabled,
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
		},
		Version: version,
	}, httpserver.WithTelemetry(tel))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	if cfg.Metrics.Enabled {
		srv.MountMetrics(cfg.Metrics.Path, promhttp.Handler())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "server shutdown complete")
	return <-errCh
}

// runStdioServer serves MCP tools on stdin/stdout. Logs go to stderr.
func runStdioServer(ctx context.Context, deps *dependencies, logger *logging.Logger) error {
	srv, err := mcp.NewServer(&mcp.Config{Name: "claimd", Version: version, Logger: logger}, deps.service)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	logger.Info(context.Background(), "stdio MCP server shutdown complete")
	return nil
}

// telemetryConfig maps the telemetry section onto telemetry.Config.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.Insecure = cfg.Telemetry.Insecure
	tc.TLSSkipVerify = cfg.Telemetry.TLSSkipVerify
	tc.Sampling.Rate = cfg.Telemetry.SampleRate
	tc.ServiceVersion = version
	tc.Metrics.Enabled = cfg.Telemetry.Enabled
	tc.Logs.Enabled = cfg.Telemetry.Enabled && cfg.Logging.OTEL
	return tc
}

// loggingConfig maps the logging section onto logging.Config. Stdio mode
// moves stream output to stderr.
func loggingConfig(cfg *config.Config, stdio bool) (*logging.Config, error) {
	lc := logging.NewDefaultConfig()
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	lc.Format = strings.ToLower(cfg.Logging.Format)
	lc.Output.OTEL = cfg.Logging.OTEL
	lc.Output.Stderr = stdio
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	return lc, nil
}
