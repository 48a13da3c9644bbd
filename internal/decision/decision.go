package decision

import "github.com/fyrsmithlabs/claimd/internal/alignment"

// Decision is the binary claim verdict.
type Decision string

const (
	Accepted Decision = "ACCEPTED"
	Rejected Decision = "REJECTED"
)

// Reasons used when no alignment supplies one.
const (
	ReasonNoConstraints = "No constraints found for analysis"
	ReasonContradiction = "Policy contradiction detected"
	ReasonSatisfied     = "All policy constraints satisfied"
)

// DefaultConfidence is used for an accepted claim when no overall scores
// are available.
const DefaultConfidence = 0.8

// Result is the verdict with its rationale.
type Result struct {
	Decision               Decision `json:"decision"`
	Reason                 string   `json:"reason"`
	Confidence             float64  `json:"confidence"`
	CriticalContradictions int      `json:"critical_contradictions"`
}

// Decide applies the all-or-nothing policy. Any contradiction rejects the
// claim, explained by the contradiction of highest risk (first wins on
// ties). A nil overall falls back to DefaultConfidence on acceptance.
func Decide(alignments []alignment.Alignment, overall *alignment.Overall) Result {
	if len(alignments) == 0 {
		return Result{Decision: Rejected, Reason: ReasonNoConstraints}
	}

	var worst *alignment.Alignment
	count := 0
	for i := range alignments {
		a := &alignments[i]
		if !a.Contradiction {
			continue
		}
		count++
		if worst == nil || a.RiskLevel > worst.RiskLevel {
			worst = a
		}
	}

	if worst != nil {
		reason := worst.ContradictionReason
		if reason == "" {
			reason = ReasonContradiction
		}
		return Result{
			Decision:               Rejected,
			Reason:                 reason,
			Confidence:             1 - worst.RiskLevel,
			CriticalContradictions: count,
		}
	}

	confidence := DefaultConfidence
	if overall != nil {
		confidence = overall.CDS
	}
	return Result{Decision: Accepted, Reason: ReasonSatisfied, Confidence: confidence}
}
