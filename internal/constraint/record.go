package constraint

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Record is the flat serializable form of a Constraint. Kind-specific fields
// are nil for other kinds.
type Record struct {
	Type            Kind    `json:"type"`
	ClauseID        string  `json:"clause_id"`
	ClauseText      string  `json:"clause_text"`
	Page            int     `json:"page"`
	SimilarityScore float64 `json:"similarity_score"`

	// waiting_period
	Condition   *string `json:"condition,omitempty"`
	PeriodValue *int    `json:"period_value,omitempty"`
	PeriodUnit  *Unit   `json:"period_unit,omitempty"`
	PeriodDays  *int    `json:"period_days,omitempty"`

	// age_limit
	LimitType *AgeLimitType `json:"limit_type,omitempty"`
	MinAge    *int          `json:"min_age,omitempty"`
	MaxAge    *int          `json:"max_age,omitempty"`

	// pre_existing
	Conditions        []string `json:"conditions,omitempty"`
	WaitingPeriodDays *int     `json:"waiting_period_days,omitempty"`
	IsPositive        *bool    `json:"is_positive,omitempty"`

	// disease_coverage
	Disease      *string  `json:"disease,omitempty"`
	IsCovered    *bool    `json:"is_covered,omitempty"`
	Restrictions []string `json:"restrictions,omitempty"`
}

// ToRecord flattens c into a Record.
func (c Constraint) ToRecord() Record {
	r := Record{
		Type:            c.Kind,
		ClauseID:        c.ClauseID,
		ClauseText:      c.ClauseText,
		Page:            c.Page,
		SimilarityScore: c.SimilarityScore,
	}

	switch c.Kind {
	case KindWaitingPeriod:
		w, _ := c.AsWaitingPeriod()
		r.Condition = &w.Condition
		r.PeriodValue = &w.PeriodValue
		r.PeriodUnit = &w.PeriodUnit
		r.PeriodDays = &w.PeriodDays
	case KindAgeLimit:
		a, _ := c.AsAgeLimit()
		r.LimitType = &a.LimitType
		r.MinAge = a.MinAge
		r.MaxAge = a.MaxAge
	case KindPreExisting:
		p, _ := c.AsPreExisting()
		r.Conditions = p.Conditions
		if r.Conditions == nil {
			r.Conditions = []string{}
		}
		r.WaitingPeriodDays = p.WaitingPeriodDays
		r.IsPositive = &p.IsPositive
	case KindDiseaseCoverage:
		d, _ := c.AsDiseaseCoverage()
		r.Disease = &d.Disease
		r.IsCovered = &d.IsCovered
		r.Restrictions = d.Restrictions
		if r.Restrictions == nil {
			r.Restrictions = []string{}
		}
	}
	return r
}

// MarshalJSON always writes conditions for pre_existing records and
// restrictions for disease_coverage records, empty or not. Other kinds omit
// both.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		Conditions   *[]string `json:"conditions,omitempty"`
		Restrictions *[]string `json:"restrictions,omitempty"`
	}{plain: plain(r)}

	switch r.Type {
	case KindPreExisting:
		out.Conditions = nonNil(r.Conditions)
	case KindDiseaseCoverage:
		out.Restrictions = nonNil(r.Restrictions)
	}
	return json.Marshal(out)
}

func nonNil(s []string) *[]string {
	if s == nil {
		s = []string{}
	}
	return &s
}

// cloneOrNil copies s, mapping an empty list to nil.
func cloneOrNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// FromRecord rebuilds a Constraint from its record form.
func FromRecord(r Record) (Constraint, error) {
	b := Base{
		ClauseID:        r.ClauseID,
		ClauseText:      r.ClauseText,
		Page:            r.Page,
		SimilarityScore: r.SimilarityScore,
	}

	switch r.Type {
	case KindWaitingPeriod:
		w := WaitingPeriod{
			Condition:   deref(r.Condition),
			PeriodValue: deref(r.PeriodValue),
			PeriodUnit:  deref(r.PeriodUnit),
			PeriodDays:  deref(r.PeriodDays),
		}
		if w.Condition == "" {
			w.Condition = GeneralCondition
		}
		if r.PeriodDays == nil {
			w.PeriodDays = w.PeriodUnit.Days(w.PeriodValue)
		}
		return NewWaitingPeriod(b, w), nil
	case KindAgeLimit:
		if r.LimitType == nil {
			return Constraint{}, fmt.Errorf("age_limit record %q: missing limit_type", r.ClauseID)
		}
		return NewAgeLimit(b, AgeLimit{LimitType: *r.LimitType, MinAge: r.MinAge, MaxAge: r.MaxAge}), nil
	case KindPreExisting:
		return NewPreExisting(b, PreExisting{
			Conditions:        cloneOrNil(r.Conditions),
			WaitingPeriodDays: r.WaitingPeriodDays,
			IsPositive:        deref(r.IsPositive),
		}), nil
	case KindDiseaseCoverage:
		return NewDiseaseCoverage(b, DiseaseCoverage{
			Disease:      deref(r.Disease),
			IsCovered:    deref(r.IsCovered),
			Restrictions: cloneOrNil(r.Restrictions),
		}), nil
	}
	return Constraint{}, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
}

// MarshalJSON encodes the constraint as its Record.
func (c Constraint) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToRecord())
}

// UnmarshalJSON decodes a Record into the constraint.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := FromRecord(r)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
