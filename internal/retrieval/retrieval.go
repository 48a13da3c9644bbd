// Package retrieval finds the policy clauses relevant to a disease.
//
// Policy text is indexed as passages into a per-policy vector collection.
// Retrieval embeds a family of disease-specific phrasings, averages them into
// one query vector and returns the nearest passages as clause records ready
// for the evaluation engine.
package retrieval

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/disease"
)

var (
	// ErrEmptyQuery is returned when the disease has no label.
	ErrEmptyQuery = errors.New("retrieval: empty disease label")

	// ErrPolicyNotIndexed is returned when no passages were indexed for the policy.
	ErrPolicyNotIndexed = errors.New("retrieval: policy not indexed")

	// ErrNoPassages is returned when IndexClauses gets nothing to index.
	ErrNoPassages = errors.New("retrieval: no passages")
)

// DefaultBoost is added to the similarity of passages that name the disease.
const DefaultBoost = 0.15

// Passage is a chunk of policy text to index.
type Passage struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
	Page int    `json:"page,omitempty"`
}

// Query describes one retrieval.
type Query struct {
	PolicyID string
	Disease  disease.Disease
	N        int
	// Boost over-fetches 2N candidates and lifts passages that name the
	// disease before cutting back to N.
	Boost bool
}

// Retriever returns clauses for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q Query) ([]clause.Clause, error)
}

// Index stores policy passages for later retrieval.
type Index interface {
	IndexClauses(ctx context.Context, policyID string, passages []Passage) ([]string, error)
	Clear(ctx context.Context, policyID string) error
}
