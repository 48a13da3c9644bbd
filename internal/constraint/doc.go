// Package constraint models typed eligibility constraints and extracts them
// from policy clause text.
//
// Constraint is a closed tagged union over four kinds: waiting period, age
// limit, pre-existing condition and disease coverage. Values are built with
// the New* constructors and inspected through the As* accessors; every
// dispatch site switches on Kind (the exhaustive linter is enabled for Kind).
//
// The Extractor runs one extractor per kind over each clause. Within a kind
// the first matching pattern wins, so a clause yields at most one constraint
// of each kind while several kinds may coexist.
package constraint
