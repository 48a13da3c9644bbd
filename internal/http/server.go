// Package http serves the claim evaluation API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/risk"
	"github.com/fyrsmithlabs/claimd/internal/telemetry"
)

// Evaluator is the subset of evaluation.Service the API calls.
type Evaluator interface {
	EvaluateClaim(ctx context.Context, req evaluation.ClaimRequest) (*evaluation.ClaimReport, error)
	AnalyzeClauses(ctx context.Context, req evaluation.AnalyzeRequest) (*evaluation.ClauseReport, error)
	ScoreRecords(ctx context.Context, raw []byte, diseaseValue string) (*risk.Scores, error)
	IndexPolicy(ctx context.Context, req evaluation.IndexRequest) (*evaluation.IndexReport, error)
	ClearPolicy(ctx context.Context, policyID string) error
	Diseases() []disease.Disease
}

// Server provides HTTP endpoints for claimd.
type Server struct {
	echo      *echo.Echo
	svc       Evaluator
	logger    *logging.Logger
	config    *Config
	telemetry *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// BodyLimit uses echo's size syntax, e.g. "2M".
	BodyLimit string
	RateLimit RateLimitConfig
	Version   string
}

// RateLimitConfig is a per-client token bucket applied to /api/v1.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry reports telemetry health on /health.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) { s.telemetry = t }
}

// NewServer creates a new HTTP server.
func NewServer(svc Evaluator, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:      "localhost",
			Port:      8080,
			BodyLimit: "2M",
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	s := &Server{
		echo:   e,
		svc:    svc,
		logger: logger.Named("http"),
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(s.requestLogger())
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit.Enabled {
		v1.Use(rateLimiter(s.config.RateLimit))
	}
	v1.GET("/diseases", s.handleDiseases)
	v1.POST("/claims/evaluate", s.handleEvaluate)
	v1.POST("/clauses/analyze", s.handleAnalyze)
	v1.POST("/clauses/index", s.handleIndex)
	v1.POST("/clauses/clear", s.handleClear)
	v1.POST("/scores", s.handleScores)
}

// MountMetrics serves h at path, outside the rate limit.
func (s *Server) MountMetrics(path string, h http.Handler) {
	s.echo.GET(path, echo.WrapHandler(h))
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Int64("size", c.Response().Size),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

func rateLimiter(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RPS),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{Store: store})
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
