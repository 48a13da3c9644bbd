package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/risk"
)

// Evaluator is the subset of evaluation.Service the tools call.
type Evaluator interface {
	EvaluateClaim(ctx context.Context, req evaluation.ClaimRequest) (*evaluation.ClaimReport, error)
	AnalyzeClauses(ctx context.Context, req evaluation.AnalyzeRequest) (*evaluation.ClauseReport, error)
	ScoreRecords(ctx context.Context, raw []byte, diseaseValue string) (*risk.Scores, error)
	IndexPolicy(ctx context.Context, req evaluation.IndexRequest) (*evaluation.IndexReport, error)
	ClearPolicy(ctx context.Context, policyID string) error
	Diseases() []disease.Disease
}

// Server serves the claim tools over MCP.
type Server struct {
	mcp          *mcp.Server
	svc          Evaluator
	toolRegistry *ToolRegistry
	metrics      *Metrics
	logger       *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "claimd")
	Name string

	// Version is the server version (default: "0.1.0")
	Version string

	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "claimd",
		Version: "0.1.0",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates an MCP server backed by svc.
func NewServer(cfg *Config, svc Evaluator) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if svc == nil {
		return nil, fmt.Errorf("evaluation service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("mcp")

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		svc:          svc,
		toolRegistry: NewToolRegistry(),
		metrics:      NewMetrics(logger.Underlying()),
		logger:       logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Registry returns the tool metadata registry.
func (s *Server) Registry() *ToolRegistry {
	return s.toolRegistry
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
