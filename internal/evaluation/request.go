package evaluation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
)

var (
	// ErrDiseaseRequired is returned when a request needs a disease and has none.
	ErrDiseaseRequired = errors.New("disease is required")

	// ErrUnknownDisease is returned when clause analysis names a disease
	// outside the catalog.
	ErrUnknownDisease = errors.New("disease not found")

	// ErrPatientRequired is returned when a claim has no patient profile.
	ErrPatientRequired = errors.New("patient data required")

	// ErrInvalidPatient is returned for negative ages or malformed dates.
	ErrInvalidPatient = errors.New("invalid patient data")

	// ErrNoClauseSource is returned when a request carries no clauses and no
	// retriever is configured.
	ErrNoClauseSource = errors.New("no clauses supplied and no retriever configured")

	// ErrIndexUnavailable is returned by index operations without an Index.
	ErrIndexUnavailable = errors.New("clause index not configured")

	// ErrInvalidRecords is returned when score records cannot be decoded.
	ErrInvalidRecords = errors.New("invalid score records")
)

// ClaimRequest asks for a verdict on one claim. When Clauses is empty they
// are retrieved from PolicyID's index.
type ClaimRequest struct {
	Patient  *alignment.PatientProfile `json:"patient"`
	Disease  string                    `json:"disease"`
	PolicyID string                    `json:"policy_id,omitempty"`
	Clauses  []clause.Clause           `json:"clauses,omitempty"`
}

// ClaimReport is the evaluation plus request bookkeeping.
type ClaimReport struct {
	EvaluationID    string `json:"evaluation_id"`
	PolicyID        string `json:"policy_id,omitempty"`
	DiseaseCategory string `json:"disease_category"`
	*decision.Evaluation
}

// AnalyzeRequest asks for clause-mode scores for a catalog disease.
type AnalyzeRequest struct {
	Disease  string          `json:"disease"`
	PolicyID string          `json:"policy_id,omitempty"`
	N        int             `json:"n_results,omitempty"`
	Clauses  []clause.Clause `json:"clauses,omitempty"`
}

// ClauseReport is the clause analysis plus the retrieval phrasing used.
type ClauseReport struct {
	*decision.ClauseAnalysis
	DiseaseCategory   string   `json:"disease_category"`
	QueriesUsed       []string `json:"queries_used"`
	TotalClausesFound int      `json:"total_clauses_found"`
}

// IndexRequest adds policy passages to the clause index.
type IndexRequest struct {
	PolicyID string              `json:"policy_id"`
	Passages []retrieval.Passage `json:"passages"`
	// Replace clears the policy's existing passages first.
	Replace bool `json:"replace,omitempty"`
}

// IndexReport lists the IDs of stored passages.
type IndexReport struct {
	PolicyID string   `json:"policy_id"`
	IDs      []string `json:"ids"`
}

func validatePatient(p *alignment.PatientProfile) error {
	if p == nil {
		return ErrPatientRequired
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: age %d is negative", ErrInvalidPatient, p.Age)
	}
	dates := [...]struct{ name, value string }{
		{"enrollment_date", p.EnrollmentDate},
		{"application_date", p.ApplicationDate},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(alignment.DateLayout, d.value); err != nil {
			return fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidPatient, d.name)
		}
	}
	return nil
}

// numberClauses fills missing IDs with clause_{i+1}, the retrieval scheme.
func numberClauses(in []clause.Clause) []clause.Clause {
	out := make([]clause.Clause, len(in))
	for i, c := range in {
		if strings.TrimSpace(c.ID) == "" {
			c.ID = "clause_" + strconv.Itoa(i+1)
		}
		out[i] = c
	}
	return out
}
