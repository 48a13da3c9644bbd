package risk

// Config holds the fixed weights and thresholds of the calculators.
type Config struct {
	// StrongSimilarity is the relevance below which a clause is ignored.
	StrongSimilarity float64 `koanf:"strong_similarity" toml:"strong_similarity"`
	// Saturation is alpha in ERG = 1 - exp(-alpha * weighted_risk).
	Saturation float64 `koanf:"saturation" toml:"saturation"`
	// ContradictionWeight scales contradiction risk in alignment-mode ERG.
	ContradictionWeight float64 `koanf:"contradiction_weight" toml:"contradiction_weight"`
	// DiseaseBoost multiplies support for disease-specific constraints.
	DiseaseBoost float64 `koanf:"disease_boost" toml:"disease_boost"`
	// SatisfiedThreshold and PartialThreshold classify alignment support.
	SatisfiedThreshold float64 `koanf:"satisfied_threshold" toml:"satisfied_threshold"`
	PartialThreshold   float64 `koanf:"partial_threshold" toml:"partial_threshold"`

	ClausePAI    PAIWeights `koanf:"clause_pai" toml:"clause_pai"`
	AlignmentPAI PAIWeights `koanf:"alignment_pai" toml:"alignment_pai"`
}

// PAIWeights weights the four ambiguity components. Spread is the
// contradiction-type entropy in alignment mode and the semantic similarity
// term in clause mode. Saturation is the record count at which confidence
// reaches its maximum.
type PAIWeights struct {
	Entropy    float64 `koanf:"entropy" toml:"entropy"`
	Variance   float64 `koanf:"variance" toml:"variance"`
	Conflict   float64 `koanf:"conflict" toml:"conflict"`
	Spread     float64 `koanf:"spread" toml:"spread"`
	Saturation float64 `koanf:"saturation" toml:"saturation"`
}

// DefaultConfig returns the standard weights.
func DefaultConfig() *Config {
	return &Config{
		StrongSimilarity:    0.3,
		Saturation:          0.9,
		ContradictionWeight: 1.5,
		DiseaseBoost:        1.2,
		SatisfiedThreshold:  0.9,
		PartialThreshold:    0.5,
		ClausePAI: PAIWeights{
			Entropy: 0.2, Variance: 0.15, Conflict: 0.5, Spread: 0.15, Saturation: 6,
		},
		AlignmentPAI: PAIWeights{
			Entropy: 0.20, Variance: 0.15, Conflict: 0.40, Spread: 0.25, Saturation: 10,
		},
	}
}

// semanticSimilarity stands in for an embedding-based clause similarity term.
const semanticSimilarity = 0.5
