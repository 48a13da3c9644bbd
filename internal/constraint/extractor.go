package constraint

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/clause"
)

type compiledUnitPattern struct {
	UnitPattern
	regex *regexp.Regexp
}

type compiledAgePattern struct {
	AgePattern
	regex *regexp.Regexp
}

// Extractor turns clause text into typed constraints. It is safe for
// concurrent use; all state is fixed at construction.
type Extractor struct {
	patterns Patterns
	waiting  []*compiledUnitPattern
	age      []*compiledAgePattern
	preExcl  []*regexp.Regexp
	preGen   []*regexp.Regexp
}

// NewExtractor compiles p. Invalid regular expressions are skipped; empty
// tables fall back to DefaultPatterns.
func NewExtractor(p Patterns) *Extractor {
	p = p.withDefaults()
	e := &Extractor{patterns: p}

	for _, up := range p.Waiting {
		re, err := regexp.Compile(up.Regex)
		if err != nil {
			continue
		}
		e.waiting = append(e.waiting, &compiledUnitPattern{UnitPattern: up, regex: re})
	}
	for _, ap := range p.Age {
		re, err := regexp.Compile(ap.Regex)
		if err != nil {
			continue
		}
		e.age = append(e.age, &compiledAgePattern{AgePattern: ap, regex: re})
	}
	e.preExcl = compileAll(p.PreExistingExclusion)
	e.preGen = compileAll(p.PreExistingGeneric)
	return e
}

// Patterns returns the tables the extractor was built with.
func (e *Extractor) Patterns() Patterns {
	return e.patterns
}

// Extract runs the waiting, age, pre-existing and disease-coverage
// extractors over every clause in order. Each extractor yields at most one
// constraint per clause.
func (e *Extractor) Extract(clauses []clause.Clause, disease string) []Constraint {
	var out []Constraint
	for _, cl := range clauses {
		cl = cl.WithDefaults()
		lower := strings.ToLower(cl.Text)
		base := Base{
			ClauseID:        cl.ID,
			ClauseText:      cl.Text,
			Page:            cl.Page,
			SimilarityScore: cl.SimilarityScore,
		}

		if c, ok := e.waitingPeriod(base, lower, disease); ok {
			out = append(out, c)
		}
		if c, ok := e.ageLimit(base, lower); ok {
			out = append(out, c)
		}
		if c, ok := e.preExisting(base, lower); ok {
			out = append(out, c)
		}
		if c, ok := e.diseaseCoverage(base, lower, disease); ok {
			out = append(out, c)
		}
	}
	return out
}

// firstPeriod returns the first waiting pattern match in lower. Matches
// longer than MaxPeriodDays are skipped.
func (e *Extractor) firstPeriod(lower string) (int, Unit, bool) {
	for _, p := range e.waiting {
		m := p.regex.FindStringSubmatch(lower)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 0 || v > MaxPeriodDays || p.Unit.Days(v) > MaxPeriodDays {
			continue
		}
		return v, p.Unit, true
	}
	return 0, "", false
}

func (e *Extractor) waitingPeriod(b Base, lower, disease string) (Constraint, bool) {
	value, unit, ok := e.firstPeriod(lower)
	if !ok {
		return Constraint{}, false
	}

	condition := GeneralCondition
	for _, kw := range e.patterns.DiseaseKeywords {
		if strings.Contains(lower, kw) {
			condition = kw
			break
		}
	}
	if d := strings.ToLower(disease); d != "" && strings.Contains(lower, d) {
		condition = d
	}

	return NewWaitingPeriod(b, WaitingPeriod{
		Condition:   condition,
		PeriodValue: value,
		PeriodUnit:  unit,
		PeriodDays:  unit.Days(value),
	}), true
}

func (e *Extractor) ageLimit(b Base, lower string) (Constraint, bool) {
	for _, p := range e.age {
		m := p.regex.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		bounds := make([]int, 0, 2)
		for _, g := range m[1:] {
			v, err := strconv.Atoi(g)
			if err != nil {
				break
			}
			bounds = append(bounds, v)
		}

		var a AgeLimit
		switch p.LimitType {
		case AgeMin:
			if len(bounds) < 1 {
				continue
			}
			a = AgeLimit{LimitType: AgeMin, MinAge: IntPtr(bounds[0])}
		case AgeMax:
			if len(bounds) < 1 {
				continue
			}
			a = AgeLimit{LimitType: AgeMax, MaxAge: IntPtr(bounds[0])}
		case AgeRange:
			if len(bounds) < 2 {
				continue
			}
			a = AgeLimit{LimitType: AgeRange, MinAge: IntPtr(bounds[0]), MaxAge: IntPtr(bounds[1])}
		default:
			continue
		}
		return NewAgeLimit(b, a), true
	}
	return Constraint{}, false
}

// isPreExisting applies the two-stage classification: explicit exclusion
// phrasing first, then a generic keyword hit that carries no continuity
// language.
func (e *Extractor) isPreExisting(lower string) bool {
	for _, re := range e.preExcl {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, re := range e.preGen {
		if !re.MatchString(lower) {
			continue
		}
		if containsAny(lower, e.patterns.ContinuityWords) {
			continue
		}
		return true
	}
	return false
}

func (e *Extractor) preExisting(b Base, lower string) (Constraint, bool) {
	if !e.isPreExisting(lower) {
		return Constraint{}, false
	}

	var conditions []string
	for _, kw := range e.patterns.DiseaseKeywords {
		if strings.Contains(lower, kw) {
			conditions = append(conditions, kw)
		}
	}
	if len(conditions) == 0 {
		conditions = []string{"any"}
	}

	var waiting *int
	if value, unit, ok := e.firstPeriod(lower); ok {
		waiting = IntPtr(unit.Days(value))
	} else if days, ok := e.patterns.Fallback.apply(lower); ok {
		waiting = IntPtr(days)
	}

	return NewPreExisting(b, PreExisting{
		Conditions:        conditions,
		WaitingPeriodDays: waiting,
		IsPositive:        containsAny(lower, e.patterns.PositiveWords),
	}), true
}

func (e *Extractor) diseaseCoverage(b Base, lower, disease string) (Constraint, bool) {
	if !e.mentions(lower, disease) {
		return Constraint{}, false
	}

	dc := DiseaseCoverage{Disease: disease, IsCovered: true}
	for _, w := range e.patterns.ExclusionWords {
		if strings.Contains(lower, w) {
			dc.IsCovered = false
			dc.Restrictions = append(dc.Restrictions, "Exclusion: "+w)
		}
	}
	if containsAny(lower, e.patterns.ConditionalPhrases) {
		dc.Restrictions = append(dc.Restrictions, "Conditional coverage")
	}
	return NewDiseaseCoverage(b, dc), true
}

// mentions reports whether the clause names the disease: either the full
// name, or a recognized disease keyword contained in that name.
func (e *Extractor) mentions(lower, disease string) bool {
	d := strings.ToLower(strings.TrimSpace(disease))
	if d == "" {
		return false
	}
	if strings.Contains(lower, d) {
		return true
	}
	for _, kw := range e.patterns.DiseaseKeywords {
		if strings.Contains(d, kw) && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (r FallbackRule) apply(lower string) (int, bool) {
	if r.Disabled || r.Days <= 0 {
		return 0, false
	}
	if containsAny(lower, r.Numbers) && containsAny(lower, r.Units) {
		return r.Days, true
	}
	return 0, false
}

func compileAll(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
