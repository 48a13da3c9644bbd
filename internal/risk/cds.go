package risk

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/claimd/internal/clause"
)

const (
	cdsRule = "--------------------------------------------------"
	ergRule = "======================================================================"
	paiRule = "================================================================================"
)

// CDS returns the Coverage Density Score for the input's mode.
func (a *Aggregator) CDS(in Input, disease string) (float64, string) {
	if in.Mode == ModeAlignment {
		return a.alignmentCDS(in.Alignments, disease)
	}
	return a.clauseCDS(in.Clauses, disease)
}

// alignmentCDS averages per-alignment support. Support is the alignment
// score, boosted for constraints whose condition is the target disease.
func (a *Aggregator) alignmentCDS(records []AlignmentRecord, disease string) (float64, string) {
	if len(records) == 0 {
		return 0, fmt.Sprintf("Calculating CDS for %s - No alignments found", disease)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating CDS for %s from %d constraints\n%s\n", disease, len(records), cdsRule)

	var total float64
	satisfied, partial := 0, 0
	for i, r := range records {
		support := r.AlignmentScore
		if strings.EqualFold(r.Condition, disease) {
			support = min(1, support*a.cfg.DiseaseBoost)
		}

		status := "UNSATISFIED"
		switch {
		case r.AlignmentScore >= a.cfg.SatisfiedThreshold:
			satisfied++
			status = "SATISFIED"
		case r.AlignmentScore >= a.cfg.PartialThreshold:
			partial++
			status = "PARTIAL"
		}
		total += support

		fmt.Fprintf(&b, "   %d. %s (%s): alignment=%.2f -> support=%.2f", i+1, status, kindLabel(r.Type), r.AlignmentScore, support)
		if r.Contradiction {
			fmt.Fprintf(&b, " CONTRADICTION (risk=%.2f)", r.RiskLevel)
		}
		b.WriteByte('\n')
	}

	score := clamp01(total / float64(len(records)))
	fmt.Fprintf(&b, "%s\nCDS SUMMARY:\n", cdsRule)
	fmt.Fprintf(&b, "   Total constraints evaluated: %d\n", len(records))
	fmt.Fprintf(&b, "   Fully satisfied: %d\n", satisfied)
	fmt.Fprintf(&b, "   Partially satisfied: %d\n", partial)
	fmt.Fprintf(&b, "   Unsatisfied: %d\n", len(records)-satisfied-partial)
	fmt.Fprintf(&b, "   Total support score: %.3f\n", total)
	fmt.Fprintf(&b, "FINAL CDS Score for %s: %.3f", disease, score)
	return score, b.String()
}

// clauseCDS is the relevance-weighted coverage density of Coverage clauses
// over the total relevance of all meaningful clauses.
func (a *Aggregator) clauseCDS(clauses []clause.Clause, disease string) (float64, string) {
	if len(clauses) == 0 {
		return 0, fmt.Sprintf("Calculating CDS for %s - No clauses found", disease)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calculating CDS for %s from %d clauses\n%s\n", disease, len(clauses), cdsRule)

	var support, relevance float64
	coverage := 0
	for i, c := range clauses {
		if c.SimilarityScore < a.cfg.StrongSimilarity {
			continue
		}
		relevance += c.SimilarityScore
		if c.Category != clause.CategoryCoverage {
			continue
		}
		coverage++
		density := float64(scoresOf(c).CoverageDensity) / 100
		s := c.SimilarityScore * density
		support += s
		fmt.Fprintf(&b, "   %d. %s (Coverage): relevance=%.2f density=%.2f -> support=%.3f\n", i+1, c.ID, c.SimilarityScore, density, s)
	}

	score := clamp01(ratio(support, relevance))
	fmt.Fprintf(&b, "%s\nCDS SUMMARY:\n", cdsRule)
	fmt.Fprintf(&b, "   Coverage clauses: %d\n", coverage)
	fmt.Fprintf(&b, "   Coverage support: %.3f\n", support)
	fmt.Fprintf(&b, "   Total relevant relevance: %.3f\n", relevance)
	fmt.Fprintf(&b, "FINAL CDS Score for %s: %.3f", disease, score)
	return score, b.String()
}

func scoresOf(c clause.Clause) clause.Scores {
	if c.Scores == nil {
		return clause.Scores{}
	}
	return *c.Scores
}
