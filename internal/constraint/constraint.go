package constraint

import (
	"errors"
	"slices"
)

// ErrUnknownKind is returned when a record names a kind outside the union.
var ErrUnknownKind = errors.New("unknown constraint kind")

// Kind tags the variant carried by a Constraint.
type Kind string

const (
	KindWaitingPeriod   Kind = "waiting_period"
	KindAgeLimit        Kind = "age_limit"
	KindPreExisting     Kind = "pre_existing"
	KindDiseaseCoverage Kind = "disease_coverage"
)

// Kinds lists every constraint kind in canonical order.
func Kinds() []Kind {
	return []Kind{KindWaitingPeriod, KindAgeLimit, KindPreExisting, KindDiseaseCoverage}
}

// Valid reports whether k is one of the four kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWaitingPeriod, KindAgeLimit, KindPreExisting, KindDiseaseCoverage:
		return true
	}
	return false
}

// Unit is a waiting-period unit.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// MaxPeriodDays bounds extracted waiting periods (100 years). Longer
// periods are treated as unparseable.
const MaxPeriodDays = 36500

// Days converts value in unit u to days (months x30, years x365).
func (u Unit) Days(value int) int {
	switch u {
	case UnitMonths:
		return value * 30
	case UnitYears:
		return value * 365
	}
	return value
}

// AgeLimitType distinguishes the three age-limit forms.
type AgeLimitType string

const (
	AgeMin   AgeLimitType = "min"
	AgeMax   AgeLimitType = "max"
	AgeRange AgeLimitType = "range"
)

// GeneralCondition is the condition label used when no disease is resolved.
const GeneralCondition = "general"

// Base holds the fields shared by every kind.
type Base struct {
	ClauseID        string
	ClauseText      string
	Page            int
	SimilarityScore float64
}

// WaitingPeriod requires a minimum time since enrollment.
type WaitingPeriod struct {
	Condition   string
	PeriodValue int
	PeriodUnit  Unit
	PeriodDays  int
}

// AgeLimit bounds the patient's age. MinAge and MaxAge are set according to
// LimitType.
type AgeLimit struct {
	LimitType AgeLimitType
	MinAge    *int
	MaxAge    *int
}

// PreExisting describes pre-existing condition handling. A positive clause
// documents a waiver or continuity benefit rather than an exclusion.
type PreExisting struct {
	Conditions        []string
	WaitingPeriodDays *int
	IsPositive        bool
}

// DiseaseCoverage records whether a named disease is covered.
type DiseaseCoverage struct {
	Disease      string
	IsCovered    bool
	Restrictions []string
}

// Constraint is one extracted eligibility rule. Exactly one variant is set,
// matching Kind.
type Constraint struct {
	Kind Kind
	Base

	waiting  *WaitingPeriod
	age      *AgeLimit
	pre      *PreExisting
	coverage *DiseaseCoverage
}

// NewWaitingPeriod builds a waiting-period constraint.
func NewWaitingPeriod(b Base, w WaitingPeriod) Constraint {
	return Constraint{Kind: KindWaitingPeriod, Base: b, waiting: &w}
}

// NewAgeLimit builds an age-limit constraint.
func NewAgeLimit(b Base, a AgeLimit) Constraint {
	a.MinAge = cloneInt(a.MinAge)
	a.MaxAge = cloneInt(a.MaxAge)
	return Constraint{Kind: KindAgeLimit, Base: b, age: &a}
}

// NewPreExisting builds a pre-existing condition constraint.
func NewPreExisting(b Base, p PreExisting) Constraint {
	p.Conditions = slices.Clone(p.Conditions)
	p.WaitingPeriodDays = cloneInt(p.WaitingPeriodDays)
	return Constraint{Kind: KindPreExisting, Base: b, pre: &p}
}

// NewDiseaseCoverage builds a disease-coverage constraint.
func NewDiseaseCoverage(b Base, d DiseaseCoverage) Constraint {
	d.Restrictions = slices.Clone(d.Restrictions)
	return Constraint{Kind: KindDiseaseCoverage, Base: b, coverage: &d}
}

// AsWaitingPeriod returns the waiting-period variant.
func (c Constraint) AsWaitingPeriod() (WaitingPeriod, bool) {
	if c.Kind != KindWaitingPeriod || c.waiting == nil {
		return WaitingPeriod{}, false
	}
	return *c.waiting, true
}

// AsAgeLimit returns the age-limit variant.
func (c Constraint) AsAgeLimit() (AgeLimit, bool) {
	if c.Kind != KindAgeLimit || c.age == nil {
		return AgeLimit{}, false
	}
	a := *c.age
	a.MinAge = cloneInt(a.MinAge)
	a.MaxAge = cloneInt(a.MaxAge)
	return a, true
}

// AsPreExisting returns the pre-existing variant.
func (c Constraint) AsPreExisting() (PreExisting, bool) {
	if c.Kind != KindPreExisting || c.pre == nil {
		return PreExisting{}, false
	}
	p := *c.pre
	p.Conditions = slices.Clone(p.Conditions)
	p.WaitingPeriodDays = cloneInt(p.WaitingPeriodDays)
	return p, true
}

// AsDiseaseCoverage returns the disease-coverage variant.
func (c Constraint) AsDiseaseCoverage() (DiseaseCoverage, bool) {
	if c.Kind != KindDiseaseCoverage || c.coverage == nil {
		return DiseaseCoverage{}, false
	}
	d := *c.coverage
	d.Restrictions = slices.Clone(d.Restrictions)
	return d, true
}

// Condition returns the resolved condition label: the waiting-period
// condition, or GeneralCondition for every other kind.
func (c Constraint) Condition() string {
	if w, ok := c.AsWaitingPeriod(); ok && w.Condition != "" {
		return w.Condition
	}
	return GeneralCondition
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
