// Package alignment compares extracted policy constraints against a patient
// profile.
//
// Each constraint yields at most one Alignment carrying a score in [0,1], a
// contradiction flag, an optional reason and a risk level. Disease-coverage
// constraints never participate: only structural eligibility rules (waiting
// periods, age limits, pre-existing conditions) affect the decision.
//
// The aligner is pure and holds no state, so a single instance may be shared
// across goroutines.
package alignment
