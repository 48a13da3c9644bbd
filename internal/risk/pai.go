package risk

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

// PAI returns the Policy Ambiguity Index for the input's mode.
func (a *Aggregator) PAI(in Input, disease string) (float64, string) {
	if in.Mode == ModeAlignment {
		return a.alignmentPAI(in.Alignments, disease)
	}
	return a.clausePAI(in.Clauses, disease)
}

// alignmentPAI blends constraint-type entropy, relative variance of type
// counts, the contradiction ratio and contradiction-type entropy, scaled by
// a confidence that grows with the number of alignments.
func (a *Aggregator) alignmentPAI(records []AlignmentRecord, disease string) (float64, string) {
	if len(records) == 0 {
		return 0, fmt.Sprintf("Calculating PAI for %s - No alignments found", disease)
	}

	kinds := constraint.Kinds()
	typeCounts := make([]int, len(kinds))
	conflictCounts := make([]int, len(kinds))
	contradictions := 0
	for _, r := range records {
		idx := kindIndex(kinds, r.Type)
		if idx >= 0 {
			typeCounts[idx]++
		}
		if r.Contradiction {
			contradictions++
			if idx >= 0 {
				conflictCounts[idx]++
			}
		}
	}

	w := a.cfg.AlignmentPAI
	n := len(records)
	entropy := normalizedEntropy(typeCounts, n, len(kinds))
	variance := relativeVariance(typeCounts)
	conflict := float64(contradictions) / float64(n)
	spread := normalizedEntropy(conflictCounts, contradictions, len(kinds))

	raw := w.Entropy*entropy + w.Variance*variance + w.Conflict*conflict + w.Spread*spread
	confidence := 0.5 + 0.5*min(1, ratio(float64(n), w.Saturation))
	score := clamp01(raw * confidence)

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating PAI for %s from %d constraints\n%s\n", disease, n, paiRule)
	b.WriteString("PAI DETAILED BREAKDOWN:\n")
	fmt.Fprintf(&b, "   Type entropy (%.0f%% weight): %.3f\n", w.Entropy*100, entropy)
	fmt.Fprintf(&b, "   Relative variance (%.0f%% weight): %.3f\n", w.Variance*100, variance)
	fmt.Fprintf(&b, "   Conflict ratio (%.0f%% weight): %.3f\n", w.Conflict*100, conflict)
	fmt.Fprintf(&b, "   Contradiction entropy (%.0f%% weight): %.3f\n", w.Spread*100, spread)
	b.WriteString("   Types:")
	for i, k := range kinds {
		fmt.Fprintf(&b, " %s=%d", k, typeCounts[i])
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "RAW PAI (before confidence): %.3f\n", raw)
	fmt.Fprintf(&b, "   Confidence multiplier: %.2f (%d/%.0f constraints)\n", confidence, n, w.Saturation)
	fmt.Fprintf(&b, "FINAL PAI Score for %s: %.3f", disease, score)
	return score, b.String()
}

// clausePAI is the conflict-dominant blend over strong clauses: category
// entropy, relative variance of category counts, exclusion share of
// coverage/exclusion clauses and a fixed semantic similarity term.
func (a *Aggregator) clausePAI(clauses []clause.Clause, disease string) (float64, string) {
	if len(clauses) == 0 {
		return 0, fmt.Sprintf("Calculating PAI for %s - No clauses found", disease)
	}

	categories := []clause.Category{
		clause.CategoryCoverage, clause.CategoryExclusion,
		clause.CategoryWaitingPeriod, clause.CategoryGeneral,
	}
	counts := make([]int, len(categories))
	strong := 0
	for _, c := range clauses {
		if c.SimilarityScore < a.cfg.StrongSimilarity {
			continue
		}
		strong++
		for i, cat := range categories {
			if c.Category == cat {
				counts[i]++
			}
		}
	}

	w := a.cfg.ClausePAI
	entropy := normalizedEntropy(counts, strong, len(categories))
	variance := relativeVariance(counts)
	conflict := ratio(float64(counts[1]), float64(counts[0]+counts[1]))

	raw := w.Entropy*entropy + w.Variance*variance + w.Conflict*conflict + w.Spread*semanticSimilarity
	confidence := min(1, ratio(float64(strong), w.Saturation))
	score := clamp01(raw * confidence)

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating PAI for %s from %d clauses\n%s\n", disease, len(clauses), paiRule)
	b.WriteString("FINAL ENHANCED PAI: Conflict Dominant + Confidence Adjusted\n")
	fmt.Fprintf(&b, "   Confidence adjustment: %.2f (%d/%.0f clauses)\n%s\n", confidence, strong, w.Saturation, paiRule)
	b.WriteString("PAI DETAILED BREAKDOWN:\n")
	fmt.Fprintf(&b, "   Entropy (%.0f%% weight): %.3f\n", w.Entropy*100, entropy)
	fmt.Fprintf(&b, "   Relative variance (%.0f%% weight): %.3f\n", w.Variance*100, variance)
	fmt.Fprintf(&b, "   Conflict score (%.0f%% weight): %.3f\n", w.Conflict*100, conflict)
	fmt.Fprintf(&b, "   Semantic similarity (%.0f%% weight): %.3f\n", w.Spread*100, semanticSimilarity)
	fmt.Fprintf(&b, "   Categories: Coverage=%d, Exclusion=%d, Waiting=%d, General=%d\n", counts[0], counts[1], counts[2], counts[3])
	fmt.Fprintf(&b, "RAW PAI (before confidence): %.3f\n", raw)
	fmt.Fprintf(&b, "   Confidence multiplier: %.2f\n", confidence)
	fmt.Fprintf(&b, "FINAL PAI Score for %s: %.3f", disease, score)
	return score, b.String()
}

func kindIndex(kinds []constraint.Kind, k constraint.Kind) int {
	for i, kk := range kinds {
		if kk == k {
			return i
		}
	}
	return -1
}
