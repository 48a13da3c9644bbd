package clause

// Category is the coarse label assigned to a clause.
type Category string

const (
	CategoryCoverage      Category = "Coverage"
	CategoryExclusion     Category = "Exclusion"
	CategoryWaitingPeriod Category = "Waiting Period"
	CategoryPreExisting   Category = "Pre-existing Condition"
	CategoryAmbiguity     Category = "Ambiguity"
	CategoryGeneral       Category = "General"
)

// Default values applied to clause records that omit them.
const (
	DefaultPage       = 1
	DefaultSimilarity = 0.5
)

// Clause is a unit of policy text returned by retrieval.
type Clause struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Page             int      `json:"page"`
	SimilarityScore  float64  `json:"similarity_score"`
	Category         Category `json:"category,omitempty"`
	Scores           *Scores  `json:"scores,omitempty"`
	DiseaseMentioned bool     `json:"disease_mentioned,omitempty"`
}

// WithDefaults returns a copy with the page and similarity defaults filled in.
func (c Clause) WithDefaults() Clause {
	if c.Page <= 0 {
		c.Page = DefaultPage
	}
	if c.SimilarityScore == 0 {
		c.SimilarityScore = DefaultSimilarity
	}
	return c
}

// Scores holds the per-clause heuristic metrics.
type Scores struct {
	CoverageDensity int     `json:"cds"`
	ExclusionRisk   int     `json:"erg"`
	Ambiguity       float64 `json:"pai"`
}

// Analysis is the result of analyzing one clause.
type Analysis struct {
	Category Category `json:"category"`
	Scores   Scores   `json:"scores"`

	// Set only by AnalyzeForDisease.
	DiseaseMentioned bool `json:"disease_mentioned"`
	HasWaitingPeriod bool `json:"has_waiting_period"`
	HasPreExisting   bool `json:"has_pre_existing"`
}

// Apply copies the analysis onto the clause. A category already present on
// the clause is kept.
func (a Analysis) Apply(c Clause) Clause {
	if c.Category == "" {
		c.Category = a.Category
	}
	scores := a.Scores
	c.Scores = &scores
	c.DiseaseMentioned = a.DiseaseMentioned
	return c
}
