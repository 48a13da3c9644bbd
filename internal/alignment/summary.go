package alignment

import "github.com/fyrsmithlabs/claimd/internal/constraint"

// TypeSummary aggregates the alignments of one constraint kind.
type TypeSummary struct {
	Total          int         `json:"total"`
	Contradictions int         `json:"contradictions"`
	AvgRisk        float64     `json:"avg_risk"`
	Alignments     []Alignment `json:"alignments"`
}

// Summary groups alignments by constraint kind.
type Summary map[constraint.Kind]TypeSummary

// Overall holds the structural composite scores of an alignment set.
type Overall struct {
	CDS               float64 `json:"cds"`
	ERG               float64 `json:"erg"`
	PAI               float64 `json:"pai"`
	ContradictionRate float64 `json:"contradiction_rate"`
}

// Result is the full output of aligning a profile against a constraint set.
type Result struct {
	Alignments         []Alignment `json:"alignments"`
	ByType             Summary     `json:"by_type"`
	Overall            Overall     `json:"overall"`
	ContradictionCount int         `json:"contradiction_count"`
	TotalConstraints   int         `json:"total_constraints"`
}

// GroupByType buckets alignments by kind, preserving evaluation order within
// each bucket.
func GroupByType(alignments []Alignment) Summary {
	s := make(Summary)
	for _, a := range alignments {
		ts := s[a.Constraint.Kind]
		ts.Total++
		if a.Contradiction {
			ts.Contradictions++
		}
		ts.AvgRisk += a.RiskLevel
		ts.Alignments = append(ts.Alignments, a)
		s[a.Constraint.Kind] = ts
	}
	for k, ts := range s {
		ts.AvgRisk /= float64(ts.Total)
		s[k] = ts
	}
	return s
}

// CountContradictions returns the number of contradictory alignments.
func CountContradictions(alignments []Alignment) int {
	n := 0
	for _, a := range alignments {
		if a.Contradiction {
			n++
		}
	}
	return n
}

// OverallScores computes CDS as the non-contradiction rate, ERG as the mean
// risk and PAI as 0.3 + 0.7 x (kinds present / 4). All are 0 for an empty set.
func OverallScores(alignments []Alignment, s Summary) Overall {
	n := len(alignments)
	if n == 0 {
		return Overall{}
	}

	contradictions := CountContradictions(alignments)
	var risk float64
	for _, a := range alignments {
		risk += a.RiskLevel
	}
	rate := float64(contradictions) / float64(n)

	return Overall{
		CDS:               1 - rate,
		ERG:               risk / float64(n),
		PAI:               0.3 + 0.7*float64(len(s))/float64(len(constraint.Kinds())),
		ContradictionRate: rate,
	}
}

// Evaluate aligns, groups and scores in one call.
func (a *Aligner) Evaluate(p PatientProfile, constraints []constraint.Constraint) Result {
	alignments := a.Align(p, constraints)
	byType := GroupByType(alignments)
	return Result{
		Alignments:         alignments,
		ByType:             byType,
		Overall:            OverallScores(alignments, byType),
		ContradictionCount: CountContradictions(alignments),
		TotalConstraints:   len(alignments),
	}
}
