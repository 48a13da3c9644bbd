package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/claimd/internal/audit"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
	"github.com/fyrsmithlabs/claimd/internal/risk"
	"github.com/fyrsmithlabs/claimd/internal/vocabulary"
)

var tracer = otel.Tracer("claimd.evaluation")

// Default clause counts, matching the retrieval depth of each flow.
const (
	DefaultEvaluateClauses = 30
	DefaultAnalyzeClauses  = 15
	maxQueriesReported     = 5
)

// Config sets how many clauses each flow retrieves.
type Config struct {
	EvaluateClauses int
	AnalyzeClauses  int
}

// Service evaluates claims. It is safe for concurrent use.
type Service struct {
	engine    atomic.Pointer[decision.Engine]
	retriever retrieval.Retriever
	index     retrieval.Index
	publisher audit.Publisher
	logger    *logging.Logger
	cfg       Config
}

// Option configures a Service.
type Option func(*Service)

// WithRetriever sets the clause source used when requests carry no clauses.
func WithRetriever(r retrieval.Retriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithIndex enables IndexPolicy and ClearPolicy.
func WithIndex(ix retrieval.Index) Option {
	return func(s *Service) { s.index = ix }
}

// WithPublisher sets where decision events go.
func WithPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig overrides the default clause counts. Non-positive values are
// ignored.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.EvaluateClauses > 0 {
			s.cfg.EvaluateClauses = cfg.EvaluateClauses
		}
		if cfg.AnalyzeClauses > 0 {
			s.cfg.AnalyzeClauses = cfg.AnalyzeClauses
		}
	}
}

// NewService creates a Service around engine. A nil engine uses the
// built-in tables.
func NewService(engine *decision.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = decision.NewEngine()
	}
	s := &Service{
		publisher: audit.NopPublisher{},
		logger:    logging.NewNop(),
		cfg: Config{
			EvaluateClauses: DefaultEvaluateClauses,
			AnalyzeClauses:  DefaultAnalyzeClauses,
		},
	}
	s.engine.Store(engine)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine currently in use.
func (s *Service) Engine() *decision.Engine {
	return s.engine.Load()
}

// SetEngine swaps the engine for subsequent requests.
func (s *Service) SetEngine(e *decision.Engine) {
	if e == nil {
		return
	}
	s.engine.Store(e)
	EngineReloads.Inc()
}

// Reload rebuilds the engine from reloaded vocabulary tables. It matches the
// vocabulary.Watcher callback.
func (s *Service) Reload(t *vocabulary.Tables) {
	if t == nil {
		return
	}
	s.SetEngine(t.Engine())
	s.logger.Info(context.Background(), "decision engine reloaded", zap.String("source", t.Source))
}

// Diseases lists the disease catalog.
func (s *Service) Diseases() []disease.Disease {
	return disease.All()
}

// EvaluateClaim produces a verdict for req. Audit publishing failures are
// logged and do not fail the request.
func (s *Service) EvaluateClaim(ctx context.Context, req ClaimRequest) (report *ClaimReport, err error) {
	start := time.Now()
	id := uuid.NewString()
	ctx = logging.WithEvaluationID(ctx, id)
	ctx, span := tracer.Start(ctx, "evaluation.EvaluateClaim", trace.WithAttributes(
		attribute.String("evaluation.id", id),
		attribute.String("disease", req.Disease),
		attribute.Bool("clauses.supplied", len(req.Clauses) > 0),
	))
	defer func() {
		finishSpan(span, err)
		observe("evaluate", start, err)
	}()

	if err := validatePatient(req.Patient); err != nil {
		return nil, err
	}
	d := disease.Resolve(req.Disease)

	clauses, err := s.clauses(ctx, req.Clauses, retrieval.Query{
		PolicyID: req.PolicyID,
		Disease:  d,
		N:        s.cfg.EvaluateClauses,
	})
	if err != nil {
		return nil, err
	}

	profile := *req.Patient
	if profile.PolicyID == "" {
		profile.PolicyID = req.PolicyID
	}
	ev := s.Engine().Evaluate(profile, clauses, d.Label)

	EvaluationsTotal.WithLabelValues(string(ev.Decision)).Inc()
	recordConstraints(ev.Constraints, ev.Alignment.Alignments)
	span.SetAttributes(
		attribute.String("decision", string(ev.Decision)),
		attribute.Int("clauses", len(ev.Clauses)),
		attribute.Int("constraints", len(ev.Constraints)),
	)

	report = &ClaimReport{
		EvaluationID:    id,
		PolicyID:        profile.PolicyID,
		DiseaseCategory: d.Category,
		Evaluation:      ev,
	}
	s.publish(ctx, report)

	s.logger.Info(ctx, "claim evaluated",
		zap.String("decision", string(ev.Decision)),
		zap.Float64("confidence", ev.Confidence),
		zap.Int("clauses", len(ev.Clauses)),
		zap.Int("constraints", len(ev.Constraints)),
		zap.Int("contradictions", ev.Alignment.Decision.CriticalContradictions),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// AnalyzeClauses categorizes and scores clauses for a catalog disease.
// Retrieved clauses use the boosted ranking.
func (s *Service) AnalyzeClauses(ctx context.Context, req AnalyzeRequest) (report *ClauseReport, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "evaluation.AnalyzeClauses", trace.WithAttributes(
		attribute.String("disease", req.Disease),
	))
	defer func() {
		finishSpan(span, err)
		observe("analyze", start, err)
	}()

	if strings.TrimSpace(req.Disease) == "" {
		return nil, ErrDiseaseRequired
	}
	d, ok := disease.Lookup(req.Disease)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisease, req.Disease)
	}
	n := req.N
	if n <= 0 {
		n = s.cfg.AnalyzeClauses
	}

	clauses, err := s.clauses(ctx, req.Clauses, retrieval.Query{
		PolicyID: req.PolicyID,
		Disease:  d,
		N:        n,
		Boost:    true,
	})
	if err != nil {
		return nil, err
	}

	analysis := s.Engine().AnalyzeClauses(clauses, d.Label)
	queries := disease.Queries(d)
	if len(queries) > maxQueriesReported {
		queries = queries[:maxQueriesReported]
	}

	s.logger.Debug(ctx, "clauses analyzed",
		zap.String("disease", d.Value),
		zap.Int("clauses", len(analysis.Clauses)),
		zap.Float64("cds", analysis.CDS),
	)
	return &ClauseReport{
		ClauseAnalysis:    analysis,
		DiseaseCategory:   d.Category,
		QueriesUsed:       queries,
		TotalClausesFound: len(analysis.Clauses),
	}, nil
}

// ScoreRecords decodes a JSON array of clause or alignment records, detects
// the mode and scores it.
func (s *Service) ScoreRecords(ctx context.Context, raw []byte, diseaseValue string) (scores *risk.Scores, err error) {
	start := time.Now()
	_, span := tracer.Start(ctx, "evaluation.ScoreRecords")
	defer func() {
		finishSpan(span, err)
		observe("score", start, err)
	}()

	in, err := risk.DecodeInput(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecords, err)
	}
	span.SetAttributes(attribute.String("mode", string(in.Mode)), attribute.Int("records", in.Len()))

	label := ""
	if strings.TrimSpace(diseaseValue) != "" {
		label = disease.Resolve(diseaseValue).Label
	}
	out := s.Engine().Score(in, label)
	return &out, nil
}

// IndexPolicy stores passages for later retrieval.
func (s *Service) IndexPolicy(ctx context.Context, req IndexRequest) (report *IndexReport, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "evaluation.IndexPolicy", trace.WithAttributes(
		attribute.String("policy.id", req.PolicyID),
		attribute.Int("passages", len(req.Passages)),
	))
	defer func() {
		finishSpan(span, err)
		observe("index", start, err)
	}()

	if s.index == nil {
		return nil, ErrIndexUnavailable
	}
	if req.Replace {
		if err := s.index.Clear(ctx, req.PolicyID); err != nil {
			return nil, err
		}
	}
	ids, err := s.index.IndexClauses(ctx, req.PolicyID, req.Passages)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "policy indexed", zap.String("policy_id", req.PolicyID), zap.Int("passages", len(ids)))
	return &IndexReport{PolicyID: req.PolicyID, IDs: ids}, nil
}

// ClearPolicy removes every passage indexed for policyID.
func (s *Service) ClearPolicy(ctx context.Context, policyID string) error {
	if s.index == nil {
		return ErrIndexUnavailable
	}
	if err := s.index.Clear(ctx, policyID); err != nil {
		return err
	}
	s.logger.Info(ctx, "policy cleared", zap.String("policy_id", policyID))
	return nil
}

// clauses returns the supplied clauses or retrieves them for q.
func (s *Service) clauses(ctx context.Context, supplied []clause.Clause, q retrieval.Query) ([]clause.Clause, error) {
	if len(supplied) > 0 {
		return numberClauses(supplied), nil
	}
	if s.retriever == nil {
		return nil, ErrNoClauseSource
	}
	if strings.TrimSpace(q.Disease.Label) == "" {
		return nil, ErrDiseaseRequired
	}
	return s.retriever.Retrieve(ctx, q)
}

func (s *Service) publish(ctx context.Context, r *ClaimReport) {
	ev := audit.Event{
		Type:                   audit.EventTypeDecided,
		EvaluationID:           r.EvaluationID,
		PolicyID:               r.PolicyID,
		Disease:                r.Disease,
		Decision:               string(r.Decision),
		Reason:                 r.Reason,
		Confidence:             r.Confidence,
		CriticalContradictions: r.Alignment.Decision.CriticalContradictions,
		TotalConstraints:       len(r.Constraints),
		CDS:                    r.CDS,
		ERG:                    r.ERG,
		PAI:                    r.PAI,
		Timestamp:              time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "audit publish failed", zap.Error(err))
	}
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	span.End()
}

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrDiseaseRequired, ErrPatientRequired, ErrInvalidPatient, ErrInvalidRecords,
		retrieval.ErrEmptyQuery, retrieval.ErrNoPassages,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
