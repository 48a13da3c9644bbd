// Package clause tags policy clauses with a category and three heuristic scores.
//
// A Categorizer is built once from a Vocabulary and is safe for concurrent use.
// Category assignment is an ordered keyword scan:
//
//  1. exclusion terms
//  2. coverage terms
//  3. waiting-period terms
//  4. pre-existing terms
//  5. ambiguity score above the configured threshold
//
// falling back to General. The first tier that matches wins.
//
// Scores:
//
//   - CoverageDensity: integer in [0,100], base 50.
//   - ExclusionRisk: integer in [0,100], base 30.
//   - Ambiguity: one decimal in [1,10], base 2.0.
//
// AnalyzeForDisease additionally boosts the first two scores when the queried
// disease is mentioned and relabels General clauses that carry waiting-period
// or pre-existing vocabulary.
package clause
