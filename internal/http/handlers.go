package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
	"github.com/fyrsmithlabs/claimd/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// DiseasesResponse is the response body for GET /api/v1/diseases.
type DiseasesResponse struct {
	Diseases []disease.Disease `json:"diseases"`
	Total    int               `json:"total"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.telemetry != nil && s.telemetry.IsEnabled() {
		h := s.telemetry.Health()
		resp.Telemetry = &h
		if !h.Healthy {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDiseases(c echo.Context) error {
	all := s.svc.Diseases()
	return c.JSON(http.StatusOK, DiseasesResponse{Diseases: all, Total: len(all)})
}

func (s *Server) handleEvaluate(c echo.Context) error {
	var req evaluation.ClaimRequest
	if err := c.Bind(&req); err != nil {
		return s.badBody(c, err)
	}
	report, err := s.svc.EvaluateClaim(c.Request().Context(), req)
	if err != nil {
		return s.toHTTPError(c.Request().Context(), "evaluate claim", err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req evaluation.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return s.badBody(c, err)
	}
	report, err := s.svc.AnalyzeClauses(c.Request().Context(), req)
	if err != nil {
		return s.toHTTPError(c.Request().Context(), "analyze clauses", err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleIndex(c echo.Context) error {
	var req evaluation.IndexRequest
	if err := c.Bind(&req); err != nil {
		return s.badBody(c, err)
	}
	if strings.TrimSpace(req.PolicyID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy_id field is required")
	}
	report, err := s.svc.IndexPolicy(c.Request().Context(), req)
	if err != nil {
		return s.toHTTPError(c.Request().Context(), "index policy", err)
	}
	return c.JSON(http.StatusCreated, report)
}

type clearRequest struct {
	PolicyID string `json:"policy_id"`
}

type clearResponse struct {
	PolicyID string `json:"policy_id"`
	Cleared  bool   `json:"cleared"`
}

// handleClear drops every passage indexed for a policy.
func (s *Server) handleClear(c echo.Context) error {
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return s.badBody(c, err)
	}
	if strings.TrimSpace(req.PolicyID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy_id field is required")
	}
	if err := s.svc.ClearPolicy(c.Request().Context(), req.PolicyID); err != nil {
		return s.toHTTPError(c.Request().Context(), "clear policy", err)
	}
	return c.JSON(http.StatusOK, clearResponse{PolicyID: req.PolicyID, Cleared: true})
}

// handleScores scores a raw JSON array of clause or alignment records. The
// optional disease query parameter drives the disease-term boost.
func (s *Server) handleScores(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return s.badBody(c, err)
	}
	scores, err := s.svc.ScoreRecords(c.Request().Context(), raw, c.QueryParam("disease"))
	if err != nil {
		return s.toHTTPError(c.Request().Context(), "score records", err)
	}
	return c.JSON(http.StatusOK, scores)
}

func (s *Server) badBody(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return he
	}
	s.logger.Warn(c.Request().Context(), "invalid request body", zap.Error(err))
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
}

// toHTTPError maps service errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) toHTTPError(ctx context.Context, op string, err error) error {
	switch {
	case evaluation.IsClientError(err), errors.Is(err, evaluation.ErrNoClauseSource):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, evaluation.ErrUnknownDisease), errors.Is(err, retrieval.ErrPolicyNotIndexed):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, evaluation.ErrIndexUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error(ctx, op+" failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
