package risk

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

// ERG returns the Exclusion Risk Gradient for the input's mode.
func (a *Aggregator) ERG(in Input, disease string) (float64, string) {
	if in.Mode == ModeAlignment {
		return a.alignmentERG(in.Alignments, disease)
	}
	return a.clauseERG(in.Clauses, disease)
}

type typeRisk struct {
	count int
	risk  float64
}

// alignmentERG saturates the weighted contradiction risk:
// 1 - exp(-alpha * min(1, w * sum(risk of contradictions) / n)).
func (a *Aggregator) alignmentERG(records []AlignmentRecord, disease string) (float64, string) {
	if len(records) == 0 {
		return 0, fmt.Sprintf("Calculating ERG for %s - No alignments found", disease)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating ERG for %s from %d constraints\n%s\n", disease, len(records), ergRule)
	b.WriteString("Contradictions contribute directly to risk\n")
	b.WriteString("Using nonlinear saturation: ERG = 1 - exp(-weighted_risk)\n")
	b.WriteString(ergRule + "\n")

	byType := make(map[constraint.Kind]*typeRisk)
	var totalRisk float64
	contradictions := 0
	for i, r := range records {
		if !r.Contradiction {
			fmt.Fprintf(&b, "   %d. SATISFIED (%s): alignment=%.2f\n", i+1, kindLabel(r.Type), r.AlignmentScore)
			continue
		}
		contradictions++
		totalRisk += r.RiskLevel
		if r.Type.Valid() {
			tr := byType[r.Type]
			if tr == nil {
				tr = &typeRisk{}
				byType[r.Type] = tr
			}
			tr.count++
			tr.risk += r.RiskLevel
		}
		fmt.Fprintf(&b, "   %d. CONTRADICTION (%s): risk=%.2f\n", i+1, kindLabel(r.Type), r.RiskLevel)
		if r.Reason != "" {
			fmt.Fprintf(&b, "      -> %s\n", r.Reason)
		}
	}

	n := float64(len(records))
	weighted := min(1, totalRisk*a.cfg.ContradictionWeight/n)
	score := saturate(a.cfg.Saturation, weighted)

	b.WriteString(ergRule + "\n")
	b.WriteString("ERG DETAILED BREAKDOWN:\n")
	b.WriteString("RISK BREAKDOWN BY TYPE:\n")
	for _, k := range constraint.Kinds() {
		tr := byType[k]
		if tr == nil {
			continue
		}
		fmt.Fprintf(&b, "   - %s: %d contradictions, avg risk %.2f\n", k, tr.count, tr.risk/float64(tr.count))
	}
	fmt.Fprintf(&b, "   Total constraints: %d\n", len(records))
	fmt.Fprintf(&b, "   Contradictions: %d\n", contradictions)
	fmt.Fprintf(&b, "   Total risk score: %.3f\n", totalRisk)
	fmt.Fprintf(&b, "   Weighted risk: %.3f\n", weighted)
	fmt.Fprintf(&b, "   ERG = 1 - exp(-%.1f x %.3f) = %.3f\n", a.cfg.Saturation, weighted, score)
	fmt.Fprintf(&b, "   Contradiction rate: %.1f%%\n", float64(contradictions)/n*100)
	fmt.Fprintf(&b, "FINAL ERG Score for %s: %.3f", disease, score)
	return score, b.String()
}

// clauseERG saturates the relevance-weighted exclusion risk of Exclusion
// and Waiting Period clauses over the relevance of all meaningful clauses.
func (a *Aggregator) clauseERG(clauses []clause.Clause, disease string) (float64, string) {
	if len(clauses) == 0 {
		return 0, fmt.Sprintf("Calculating ERG for %s - No clauses found", disease)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating ERG for %s from %d clauses\n%s\n", disease, len(clauses), ergRule)

	var risk, relevance float64
	risky := 0
	for i, c := range clauses {
		if c.SimilarityScore < a.cfg.StrongSimilarity {
			continue
		}
		relevance += c.SimilarityScore
		if c.Category != clause.CategoryExclusion && c.Category != clause.CategoryWaitingPeriod {
			continue
		}
		risky++
		exposure := float64(scoresOf(c).ExclusionRisk) / 100
		r := c.SimilarityScore * exposure
		risk += r
		fmt.Fprintf(&b, "   %d. %s (%s): relevance=%.2f exclusion=%.2f -> risk=%.3f\n", i+1, c.ID, c.Category, c.SimilarityScore, exposure, r)
	}

	weighted := min(1, ratio(risk, relevance))
	score := saturate(a.cfg.Saturation, weighted)

	b.WriteString(ergRule + "\n")
	fmt.Fprintf(&b, "   Exclusion and waiting clauses: %d\n", risky)
	fmt.Fprintf(&b, "   Weighted risk: %.3f\n", weighted)
	fmt.Fprintf(&b, "   ERG = 1 - exp(-%.1f x %.3f) = %.3f\n", a.cfg.Saturation, weighted, score)
	fmt.Fprintf(&b, "FINAL ERG Score for %s: %.3f", disease, score)
	return score, b.String()
}

func kindLabel(k constraint.Kind) string {
	if k == "" {
		return "unknown"
	}
	return string(k)
}
