package clause

// Vocabulary is the keyword configuration owned by a Categorizer.
//
// All entries are matched as lowercase substrings of the lowercased clause.
type Vocabulary struct {
	Coverage         []string `koanf:"coverage" toml:"coverage"`
	Exclusion        []string `koanf:"exclusion" toml:"exclusion"`
	Ambiguity        []string `koanf:"ambiguity" toml:"ambiguity"`
	Waiting          []string `koanf:"waiting" toml:"waiting"`
	PreExisting      []string `koanf:"pre_existing" toml:"pre_existing"`
	PositiveCoverage []string `koanf:"positive_coverage" toml:"positive_coverage"`
	Limitation       []string `koanf:"limitation" toml:"limitation"`

	// ExclusionMarkers are the stems searched near a disease token by the
	// proximity check.
	ExclusionMarkers []string `koanf:"exclusion_markers" toml:"exclusion_markers"`

	// AmbiguityThreshold is the score above which an otherwise unmatched
	// clause is labelled Ambiguity.
	AmbiguityThreshold float64 `koanf:"ambiguity_threshold" toml:"ambiguity_threshold"`

	// ProximityWindow is the maximum number of words allowed between a
	// disease token and an exclusion marker. Zero disables the check.
	ProximityWindow int `koanf:"proximity_window" toml:"proximity_window"`
}

// DefaultProximityWindow is the word distance used by DefaultVocabulary.
const DefaultProximityWindow = 5

// DefaultVocabulary returns the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Coverage: []string{
			"coverage", "cover", "covered", "benefits", "benefit",
			"reimbursement", "reimburse", "payment", "pay", "eligible",
			"entitled", "entitlement", "shall pay", "will cover",
			"includes", "including", "provided", "payable",
		},
		Exclusion: []string{
			"exclusion", "exclude", "excluded", "not covered",
			"does not cover", "will not pay", "shall not",
			"not eligible", "ineligible", "limitation", "limit",
			"except", "exception", "exceptions", "excluding",
			"not included", "shall not cover",
		},
		Ambiguity: []string{
			"may", "might", "could", "possibly", "usually",
			"generally", "normally", "typical", "reasonable",
			"appropriate", "as determined by", "at our discretion",
			"sole discretion", "subject to", "depending on",
			"in some cases", "if necessary", "as applicable",
		},
		Waiting: []string{
			"waiting period", "first 30 days", "first year",
			"first two years", "first three years", "commencement",
			"inception", "initial period", "after", "within",
			"days of cover", "months of cover", "years of cover",
		},
		PreExisting: []string{
			"pre-existing", "preexisting", "existing condition",
			"prior condition", "pre existing", "already had",
			"before inception", "prior to", "known condition",
		},
		PositiveCoverage: []string{
			"shall be covered", "will be paid", "eligible for", "entitled to",
		},
		Limitation:         []string{"limit", "maximum", "cap"},
		ExclusionMarkers:   []string{"exclu"},
		AmbiguityThreshold: 3.5,
		ProximityWindow:    DefaultProximityWindow,
	}
}

// withDefaults fills empty tables from DefaultVocabulary and copies every
// slice so later mutation by the caller cannot leak in.
func (v Vocabulary) withDefaults() Vocabulary {
	d := DefaultVocabulary()
	pick := func(got, def []string) []string {
		if len(got) == 0 {
			got = def
		}
		return append([]string(nil), got...)
	}
	v.Coverage = pick(v.Coverage, d.Coverage)
	v.Exclusion = pick(v.Exclusion, d.Exclusion)
	v.Ambiguity = pick(v.Ambiguity, d.Ambiguity)
	v.Waiting = pick(v.Waiting, d.Waiting)
	v.PreExisting = pick(v.PreExisting, d.PreExisting)
	v.PositiveCoverage = pick(v.PositiveCoverage, d.PositiveCoverage)
	v.Limitation = pick(v.Limitation, d.Limitation)
	v.ExclusionMarkers = pick(v.ExclusionMarkers, d.ExclusionMarkers)
	if v.AmbiguityThreshold <= 0 {
		v.AmbiguityThreshold = d.AmbiguityThreshold
	}
	if v.ProximityWindow < 0 {
		v.ProximityWindow = 0
	}
	return v
}
