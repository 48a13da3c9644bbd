package alignment

import (
	"fmt"
	"math"
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

// Alignment is the outcome of checking one constraint against a patient.
type Alignment struct {
	Constraint          constraint.Constraint `json:"constraint"`
	AlignmentScore      float64               `json:"alignment_score"`
	Contradiction       bool                  `json:"contradiction"`
	ContradictionReason string                `json:"contradiction_reason,omitempty"`
	RiskLevel           float64               `json:"risk_level"`
}

// Aligner scores constraints against patient profiles.
type Aligner struct{}

// NewAligner returns an Aligner.
func NewAligner() *Aligner {
	return &Aligner{}
}

// Align checks every constraint in order. Disease-coverage constraints and
// unknown kinds produce no alignment.
func (a *Aligner) Align(p PatientProfile, constraints []constraint.Constraint) []Alignment {
	out := make([]Alignment, 0, len(constraints))
	for _, c := range constraints {
		if al, ok := a.AlignOne(p, c); ok {
			out = append(out, al)
		}
	}
	return out
}

// AlignOne checks a single constraint. The boolean is false when the
// constraint does not participate in alignment.
func (a *Aligner) AlignOne(p PatientProfile, c constraint.Constraint) (Alignment, bool) {
	switch c.Kind {
	case constraint.KindWaitingPeriod:
		w, ok := c.AsWaitingPeriod()
		if !ok {
			return Alignment{}, false
		}
		return alignWaiting(p, c, w), true
	case constraint.KindAgeLimit:
		al, ok := c.AsAgeLimit()
		if !ok {
			return Alignment{}, false
		}
		return alignAge(p, c, al), true
	case constraint.KindPreExisting:
		pe, ok := c.AsPreExisting()
		if !ok {
			return Alignment{}, false
		}
		return alignPreExisting(p, c, pe), true
	case constraint.KindDiseaseCoverage:
		return Alignment{}, false
	default:
		return Alignment{}, false
	}
}

func satisfied(c constraint.Constraint) Alignment {
	return Alignment{Constraint: c, AlignmentScore: 1}
}

func violated(c constraint.Constraint, score float64, reason string) Alignment {
	return Alignment{
		Constraint:          c,
		AlignmentScore:      score,
		Contradiction:       true,
		ContradictionReason: reason,
		RiskLevel:           1 - score,
	}
}

// ratio is num/den clamped to [0,1]; a non-positive denominator gives 0.
func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(num)/float64(den)))
}

func alignWaiting(p PatientProfile, c constraint.Constraint, w constraint.WaitingPeriod) Alignment {
	days := p.DaysSinceEnrollment()
	if days >= w.PeriodDays {
		return satisfied(c)
	}
	return violated(c, ratio(days, w.PeriodDays),
		fmt.Sprintf("Waiting period not met: %d/%d days", days, w.PeriodDays))
}

// alignAge scores the violated bound as bound/age or age/bound. A missing
// bound never constrains.
func alignAge(p PatientProfile, c constraint.Constraint, al constraint.AgeLimit) Alignment {
	age := p.Age
	belowMin := al.MinAge != nil && age < *al.MinAge
	aboveMax := al.MaxAge != nil && age > *al.MaxAge

	switch al.LimitType {
	case constraint.AgeMin:
		if belowMin {
			return violated(c, ratio(age, *al.MinAge),
				fmt.Sprintf("Age %d below minimum %d", age, *al.MinAge))
		}
	case constraint.AgeMax:
		if aboveMax {
			return violated(c, ratio(*al.MaxAge, age),
				fmt.Sprintf("Age %d exceeds maximum %d", age, *al.MaxAge))
		}
	case constraint.AgeRange:
		lo, hi := "?", "?"
		if al.MinAge != nil {
			lo = fmt.Sprint(*al.MinAge)
		}
		if al.MaxAge != nil {
			hi = fmt.Sprint(*al.MaxAge)
		}
		switch {
		case belowMin:
			return violated(c, ratio(age, *al.MinAge),
				fmt.Sprintf("Age %d below range %s-%s", age, lo, hi))
		case aboveMax:
			return violated(c, ratio(*al.MaxAge, age),
				fmt.Sprintf("Age %d above range %s-%s", age, lo, hi))
		}
	}
	return satisfied(c)
}

// matchingConditions returns the constraint conditions that apply to the
// patient: "any", or a case-insensitive substring match in either direction.
func matchingConditions(p PatientProfile, conditions []string) []string {
	patient := make([]string, 0, len(p.PreExistingConditions))
	for _, pc := range p.PreExistingConditions {
		patient = append(patient, strings.ToLower(pc))
	}

	var matches []string
	for _, cond := range conditions {
		lc := strings.ToLower(cond)
		if lc == "any" {
			matches = append(matches, cond)
			continue
		}
		for _, pc := range patient {
			if strings.Contains(pc, lc) || strings.Contains(lc, pc) {
				matches = append(matches, cond)
				break
			}
		}
	}
	return matches
}

func alignPreExisting(p PatientProfile, c constraint.Constraint, pe constraint.PreExisting) Alignment {
	matches := matchingConditions(p, pe.Conditions)
	if len(matches) == 0 {
		return satisfied(c)
	}

	waiting := 0
	if pe.WaitingPeriodDays != nil {
		waiting = *pe.WaitingPeriodDays
	}

	if waiting != 0 {
		days := p.DaysSinceEnrollment()
		if days >= waiting {
			al := satisfied(c)
			al.ContradictionReason = fmt.Sprintf("Pre-existing waiting period satisfied (%d/%d days)", days, waiting)
			return al
		}
		if pe.IsPositive {
			// Informative only: a waiver that has not yet matured is not a
			// contradiction and carries no risk.
			return Alignment{Constraint: c, AlignmentScore: ratio(days, waiting)}
		}
		return violated(c, ratio(days, waiting),
			fmt.Sprintf("Pre-existing condition waiting period not met: %d/%d days", days, waiting))
	}

	if pe.IsPositive {
		return satisfied(c)
	}
	return violated(c, 0, fmt.Sprintf("Pre-existing condition '%s' excluded", matches[0]))
}
