package risk

import (
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/clause"
)

// Scores is the combined output of the three calculators.
type Scores struct {
	Mode           Mode    `json:"mode"`
	CDS            float64 `json:"cds_score"`
	ERG            float64 `json:"erg_score"`
	PAI            float64 `json:"pai_score"`
	DetailedReport string  `json:"detailed_report"`
}

// Aggregator runs the composite calculators. It is immutable after
// construction and safe for concurrent use.
type Aggregator struct {
	cfg         *Config
	categorizer *clause.Categorizer
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithCategorizer sets the categorizer used to tag clause-mode records that
// arrive without a category or scores.
func WithCategorizer(c *clause.Categorizer) AggregatorOption {
	return func(a *Aggregator) {
		a.categorizer = c
	}
}

// NewAggregator creates an aggregator. A nil cfg uses DefaultConfig.
func NewAggregator(cfg *Config, opts ...AggregatorOption) *Aggregator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	a := &Aggregator{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.categorizer == nil {
		a.categorizer = clause.NewCategorizer(clause.DefaultVocabulary())
	}
	return a
}

// Config returns the aggregator's weights.
func (a *Aggregator) Config() Config {
	return *a.cfg
}

// Score computes all three metrics and joins their reports with blank lines.
func (a *Aggregator) Score(in Input, disease string) Scores {
	if in.Mode == "" {
		in.Mode = ModeClause
	}
	if in.Mode == ModeClause {
		in.Clauses = a.tag(in.Clauses, disease)
	}

	cds, cdsReport := a.CDS(in, disease)
	erg, ergReport := a.ERG(in, disease)
	pai, paiReport := a.PAI(in, disease)

	return Scores{
		Mode:           in.Mode,
		CDS:            cds,
		ERG:            erg,
		PAI:            pai,
		DetailedReport: strings.Join([]string{cdsReport, ergReport, paiReport}, "\n\n"),
	}
}

// tag fills in category and scores for clauses missing either. The input
// slice is not modified.
func (a *Aggregator) tag(clauses []clause.Clause, disease string) []clause.Clause {
	out := make([]clause.Clause, len(clauses))
	for i, c := range clauses {
		if c.Category == "" || c.Scores == nil {
			c = a.categorizer.AnalyzeForDisease(c.Text, disease).Apply(c)
		}
		out[i] = c
	}
	return out
}
