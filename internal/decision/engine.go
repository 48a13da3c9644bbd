package decision

import (
	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
	"github.com/fyrsmithlabs/claimd/internal/risk"
)

// AlignmentReport is the aligner output together with its verdict.
type AlignmentReport struct {
	alignment.Result
	Decision Result `json:"decision"`
}

// Summary condenses an evaluation for display.
type Summary struct {
	TotalClauses     int      `json:"total_clauses"`
	TotalConstraints int      `json:"total_constraints"`
	Decision         Decision `json:"decision"`
	Reason           string   `json:"reason"`
	Confidence       float64  `json:"confidence"`
	CDS              float64  `json:"cds"`
	ERG              float64  `json:"erg"`
	PAI              float64  `json:"pai"`
}

// Evaluation is the full, serializable outcome of one claim evaluation.
type Evaluation struct {
	Disease     string                  `json:"disease"`
	Patient     alignment.ProfileView   `json:"patient"`
	Clauses     []clause.Clause         `json:"clauses"`
	Constraints []constraint.Constraint `json:"constraints"`
	Alignment   AlignmentReport         `json:"alignment"`
	risk.Scores
	Summary Summary `json:"summary"`

	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// Verdict returns the decision result.
func (e *Evaluation) Verdict() Result {
	return e.Alignment.Decision
}

// ClauseAnalysis is the outcome of clause-mode scoring.
type ClauseAnalysis struct {
	Disease string          `json:"disease"`
	Clauses []clause.Clause `json:"clauses"`
	risk.Scores
}

// Engine runs the evaluation pipeline. All collaborators hold read-only
// configuration, so one Engine serves concurrent evaluations.
type Engine struct {
	categorizer *clause.Categorizer
	extractor   *constraint.Extractor
	aligner     *alignment.Aligner
	aggregator  *risk.Aggregator
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCategorizer sets the clause categorizer.
func WithCategorizer(c *clause.Categorizer) EngineOption {
	return func(e *Engine) {
		e.categorizer = c
	}
}

// WithExtractor sets the constraint extractor.
func WithExtractor(x *constraint.Extractor) EngineOption {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithAligner sets the patient aligner.
func WithAligner(a *alignment.Aligner) EngineOption {
	return func(e *Engine) {
		e.aligner = a
	}
}

// WithAggregator sets the composite score aggregator.
func WithAggregator(a *risk.Aggregator) EngineOption {
	return func(e *Engine) {
		e.aggregator = a
	}
}

// NewEngine creates an engine. Collaborators not supplied use the built-in
// tables.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.categorizer == nil {
		e.categorizer = clause.NewCategorizer(clause.DefaultVocabulary())
	}
	if e.extractor == nil {
		e.extractor = constraint.NewExtractor(constraint.DefaultPatterns())
	}
	if e.aligner == nil {
		e.aligner = alignment.NewAligner()
	}
	if e.aggregator == nil {
		e.aggregator = risk.NewAggregator(nil, risk.WithCategorizer(e.categorizer))
	}
	return e
}

// NewEngineFromVocabulary builds an engine whose categorizer, extractor and
// aggregator share the given tables.
func NewEngineFromVocabulary(vocab clause.Vocabulary, patterns constraint.Patterns, cfg *risk.Config) *Engine {
	categorizer := clause.NewCategorizer(vocab)
	return NewEngine(
		WithCategorizer(categorizer),
		WithExtractor(constraint.NewExtractor(patterns)),
		WithAggregator(risk.NewAggregator(cfg, risk.WithCategorizer(categorizer))),
	)
}

// Categorizer returns the engine's clause categorizer.
func (e *Engine) Categorizer() *clause.Categorizer {
	return e.categorizer
}

// Categorize applies the disease-specific analysis to each clause. A
// category already present on a clause is kept.
func (e *Engine) Categorize(clauses []clause.Clause, disease string) []clause.Clause {
	out := make([]clause.Clause, 0, len(clauses))
	for _, c := range clauses {
		c = c.WithDefaults()
		out = append(out, e.categorizer.AnalyzeForDisease(c.Text, disease).Apply(c))
	}
	return out
}

// Evaluate runs categorization, extraction, alignment, the decision policy
// and alignment-mode scoring for one claim.
func (e *Engine) Evaluate(p alignment.PatientProfile, clauses []clause.Clause, disease string) *Evaluation {
	tagged := e.Categorize(clauses, disease)
	constraints := e.extractor.Extract(tagged, disease)
	if constraints == nil {
		constraints = []constraint.Constraint{}
	}

	res := e.aligner.Evaluate(p, constraints)
	verdict := Decide(res.Alignments, &res.Overall)
	scores := e.aggregator.Score(risk.AlignmentInput(res.Alignments), disease)

	return &Evaluation{
		Disease:     disease,
		Patient:     p.View(),
		Clauses:     tagged,
		Constraints: constraints,
		Alignment:   AlignmentReport{Result: res, Decision: verdict},
		Scores:      scores,
		Summary: Summary{
			TotalClauses:     len(tagged),
			TotalConstraints: len(constraints),
			Decision:         verdict.Decision,
			Reason:           verdict.Reason,
			Confidence:       verdict.Confidence,
			CDS:              scores.CDS,
			ERG:              scores.ERG,
			PAI:              scores.PAI,
		},
		Decision:   verdict.Decision,
		Reason:     verdict.Reason,
		Confidence: verdict.Confidence,
	}
}

// AnalyzeClauses categorizes clauses for disease and scores them in clause
// mode.
func (e *Engine) AnalyzeClauses(clauses []clause.Clause, disease string) *ClauseAnalysis {
	tagged := e.Categorize(clauses, disease)
	return &ClauseAnalysis{
		Disease: disease,
		Clauses: tagged,
		Scores:  e.aggregator.Score(risk.ClauseInput(tagged), disease),
	}
}

// Score runs the aggregator on an already-decoded input.
func (e *Engine) Score(in risk.Input, disease string) risk.Scores {
	return e.aggregator.Score(in, disease)
}
