package constraint

import "slices"

// UnitPattern matches a waiting period; group 1 captures the value.
type UnitPattern struct {
	Name  string `koanf:"name" toml:"name"`
	Regex string `koanf:"regex" toml:"regex"`
	Unit  Unit   `koanf:"unit" toml:"unit"`
}

// AgePattern matches an age limit. Min and max patterns capture one bound
// in group 1; range patterns capture min and max in groups 1 and 2.
type AgePattern struct {
	Name      string       `koanf:"name" toml:"name"`
	Regex     string       `koanf:"regex" toml:"regex"`
	LimitType AgeLimitType `koanf:"limit_type" toml:"limit_type"`
}

// FallbackRule supplies a pre-existing waiting period when no explicit
// period is found: if the text contains any of Numbers and any of Units,
// Days is assumed.
type FallbackRule struct {
	Name     string   `koanf:"name" toml:"name"`
	Numbers  []string `koanf:"numbers" toml:"numbers"`
	Units    []string `koanf:"units" toml:"units"`
	Days     int      `koanf:"days" toml:"days"`
	Disabled bool     `koanf:"disabled" toml:"disabled"`
}

// DefaultFallbackRule assumes 48 months when a pre-existing clause mentions
// "48" or "four" alongside a month or year unit.
func DefaultFallbackRule() FallbackRule {
	return FallbackRule{
		Name:    "four-year-default",
		Numbers: []string{"48", "four"},
		Units:   []string{"month", "year"},
		Days:    48 * 30,
	}
}

// Patterns is the read-only pattern configuration of an Extractor.
type Patterns struct {
	Waiting []UnitPattern `koanf:"waiting" toml:"waiting"`
	Age     []AgePattern  `koanf:"age" toml:"age"`

	// PreExistingExclusion marks a clause definitively as an exclusion.
	PreExistingExclusion []string `koanf:"pre_existing_exclusion" toml:"pre_existing_exclusion"`
	// PreExistingGeneric is consulted only when no exclusion pattern hit.
	PreExistingGeneric []string `koanf:"pre_existing_generic" toml:"pre_existing_generic"`
	// ContinuityWords cause a generic hit to be skipped.
	ContinuityWords []string `koanf:"continuity_words" toml:"continuity_words"`
	// PositiveWords mark a classified clause as a waiver.
	PositiveWords []string `koanf:"positive_words" toml:"positive_words"`

	DiseaseKeywords    []string     `koanf:"disease_keywords" toml:"disease_keywords"`
	ExclusionWords     []string     `koanf:"exclusion_words" toml:"exclusion_words"`
	ConditionalPhrases []string     `koanf:"conditional_phrases" toml:"conditional_phrases"`
	Fallback           FallbackRule `koanf:"fallback" toml:"fallback"`
}

// DefaultPatterns returns the built-in pattern tables.
func DefaultPatterns() Patterns {
	return Patterns{
		Waiting: []UnitPattern{
			{Name: "days_of_cover", Regex: `(\d+)\s*days?\s*(?:of|after|from)\s*cover`, Unit: UnitDays},
			{Name: "months_of_cover", Regex: `(\d+)\s*(?:month|months?)\s*(?:of|after|from)\s*cover`, Unit: UnitMonths},
			{Name: "years_of_cover", Regex: `(\d+)\s*(?:year|years?)\s*(?:of|after|from)\s*cover`, Unit: UnitYears},
			{Name: "first_days", Regex: `first\s*(\d+)\s*days?`, Unit: UnitDays},
			{Name: "first_months", Regex: `first\s*(\d+)\s*(?:month|months?)`, Unit: UnitMonths},
			{Name: "first_years", Regex: `first\s*(\d+)\s*(?:year|years?)`, Unit: UnitYears},
			{Name: "waiting_days", Regex: `waiting period of\s*(\d+)\s*days?`, Unit: UnitDays},
			{Name: "waiting_months", Regex: `waiting period of\s*(\d+)\s*(?:month|months?)`, Unit: UnitMonths},
			{Name: "waiting_years", Regex: `waiting period of\s*(\d+)\s*(?:year|years?)`, Unit: UnitYears},
		},
		Age: []AgePattern{
			{Name: "age_above", Regex: `age\s*(?:above|over|>|greater than)\s*(\d+)`, LimitType: AgeMin},
			{Name: "age_below", Regex: `age\s*(?:below|under|<|less than)\s*(\d+)`, LimitType: AgeMax},
			{Name: "age_span", Regex: `age\s*(\d+)\s*(?:to|\-)\s*(\d+)`, LimitType: AgeRange},
			{Name: "aged_between", Regex: `aged?\s*(\d+)\s*(?:years?)?\s*(?:and|to)\s*(\d+)`, LimitType: AgeRange},
			{Name: "up_to_age", Regex: `up to age\s*(\d+)`, LimitType: AgeMax},
			{Name: "minimum_age", Regex: `minimum age\s*(\d+)`, LimitType: AgeMin},
			{Name: "maximum_age", Regex: `maximum age\s*(\d+)`, LimitType: AgeMax},
		},
		PreExistingExclusion: []string{
			`pre[\-\s]existing.*exclu`,
			`existing condition.*not covered`,
			`pre[\-\s]existing.*not covered`,
			`pre[\-\s]existing.*shall not`,
			`pre[\-\s]existing.*will not`,
			`pre[\-\s]existing.*benefits.*not.*available`,
			`pre[\-\s]existing.*no.*benefits`,
		},
		PreExistingGeneric: []string{
			`pre[\-\s]existing`,
			`existing condition`,
			`prior condition`,
			`known condition`,
			`any condition.*?(?:diagnosed|treated).*?prior`,
		},
		ContinuityWords: []string{"continuity", "waived", "satisfied", "after", "complete"},
		PositiveWords:   []string{"waived", "continuity", "satisfied", "without loss"},
		DiseaseKeywords: []string{
			"diabetes", "hypertension", "asthma", "copd", "cancer",
			"arthritis", "thyroid", "cataract", "hernia", "piles",
			"fistula", "gallstones", "kidney stones", "sinusitis",
		},
		ExclusionWords:     []string{"exclu", "not covered", "not eligible", "shall not"},
		ConditionalPhrases: []string{"only if", "provided that"},
		Fallback:           DefaultFallbackRule(),
	}
}

// withDefaults fills empty tables from DefaultPatterns. The fallback rule is
// replaced only when it is entirely unset.
func (p Patterns) withDefaults() Patterns {
	d := DefaultPatterns()
	if len(p.Waiting) == 0 {
		p.Waiting = d.Waiting
	}
	if len(p.Age) == 0 {
		p.Age = d.Age
	}
	pick := func(got, def []string) []string {
		if len(got) == 0 {
			return def
		}
		return slices.Clone(got)
	}
	p.PreExistingExclusion = pick(p.PreExistingExclusion, d.PreExistingExclusion)
	p.PreExistingGeneric = pick(p.PreExistingGeneric, d.PreExistingGeneric)
	p.ContinuityWords = pick(p.ContinuityWords, d.ContinuityWords)
	p.PositiveWords = pick(p.PositiveWords, d.PositiveWords)
	p.DiseaseKeywords = pick(p.DiseaseKeywords, d.DiseaseKeywords)
	p.ExclusionWords = pick(p.ExclusionWords, d.ExclusionWords)
	p.ConditionalPhrases = pick(p.ConditionalPhrases, d.ConditionalPhrases)
	if p.Fallback.Name == "" && p.Fallback.Days == 0 && !p.Fallback.Disabled {
		p.Fallback = d.Fallback
	}
	return p
}
