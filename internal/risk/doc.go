// Package risk computes the three composite policy metrics: Coverage Density
// Score (CDS), Exclusion Risk Gradient (ERG) and Policy Ambiguity Index (PAI).
//
// Two input modes exist. Clause mode scores categorized clauses by relevance
// and backs the clause analysis endpoint. Alignment mode scores patient
// alignments and backs claim evaluation. The mode of a raw record batch is
// detected from the presence of an alignment_score field on its first record.
// Each calculator returns a score in [0,1] together with a human-readable
// breakdown.
package risk
