// Package decision renders the terminal accept/reject verdict and wires the
// clause categorizer, constraint extractor, patient aligner and risk
// aggregator into a single claim evaluation pipeline.
package decision
