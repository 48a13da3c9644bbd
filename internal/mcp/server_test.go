package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
)

func rejectedClaim() evaluateClaimInput {
	return evaluateClaimInput{
		Patient: patientInput{
			Age:                   70,
			PreExistingConditions: []string{"diabetes"},
			EnrollmentDate:        "2023-01-01",
			ApplicationDate:       "2023-06-01",
		},
		Disease: "diabetes_type_2",
		Clauses: []clauseInput{
			{ID: "clause_1", Text: "Diabetes shall be covered after a waiting period of 2 years", Page: 4, SimilarityScore: 0.8},
			{ID: "clause_2", Text: "Cover is available up to age 65", Page: 2, SimilarityScore: 0.7},
		},
	}
}

func newTestServer(t *testing.T, logger *logging.Logger) *Server {
	t.Helper()
	s, err := NewServer(&Config{Name: "claimd-test", Version: "test", Logger: logger}, evaluation.NewService(nil))
	require.NoError(t, err)
	return s
}

func TestNewServer(t *testing.T) {
	s, err := NewServer(nil, evaluation.NewService(nil))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Registry().Count())

	_, err = NewServer(DefaultConfig(), nil)
	assert.ErrorContains(t, err, "evaluation service is required")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "claimd", cfg.Name)
	assert.Equal(t, "0.1.0", cfg.Version)
	assert.NotNil(t, cfg.Logger)
}

func TestHandleEvaluateClaim(t *testing.T) {
	tl := logging.NewTestLogger()
	s := newTestServer(t, tl.Logger)

	res, out, err := s.handleEvaluateClaim(context.Background(), nil, rejectedClaim())
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", out.Decision)
	assert.Equal(t, "Waiting period not met: 151/730 days", out.Reason)
	assert.Equal(t, "Endocrine", out.DiseaseCategory)
	assert.Equal(t, 2, out.Clauses)
	assert.Equal(t, 3, out.Constraints)
	assert.Len(t, out.Contradictions, 2)
	assert.NotEmpty(t, out.EvaluationID)

	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "REJECTED: Waiting period not met")
	tl.AssertNoPatientData(t)
}

func TestHandleEvaluateClaim_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	in := rejectedClaim()
	in.Patient.EnrollmentDate = "01/01/2023"
	_, _, err := s.handleEvaluateClaim(context.Background(), nil, in)
	assert.ErrorIs(t, err, evaluation.ErrInvalidPatient)

	in = rejectedClaim()
	in.Clauses = nil
	_, _, err = s.handleEvaluateClaim(context.Background(), nil, in)
	assert.ErrorIs(t, err, evaluation.ErrNoClauseSource)
}

func TestHandleAnalyzeClauses(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleAnalyzeClauses(context.Background(), nil, analyzeClausesInput{
		Disease: "asthma",
		Clauses: []clauseInput{
			{Text: "Asthma treatment is covered under this policy.", SimilarityScore: 0.9},
			{Text: "Claims arising from pre-existing respiratory conditions are excluded.", SimilarityScore: 0.6},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Asthma", out.Disease)
	assert.Equal(t, "Respiratory", out.DiseaseCategory)
	require.Len(t, out.Clauses, 2)
	assert.Equal(t, "clause_1", out.Clauses[0].ID)
	assert.NotEmpty(t, out.Clauses[0].Category)
	assert.Len(t, out.QueriesUsed, 5)
	assert.NotEmpty(t, out.DetailedReport)

	_, _, err = s.handleAnalyzeClauses(context.Background(), nil, analyzeClausesInput{Disease: "gout"})
	assert.ErrorIs(t, err, evaluation.ErrUnknownDisease)
}

func TestHandleScoreRecords(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleScoreRecords(context.Background(), nil, scoreRecordsInput{
		Records: []map[string]any{{
			"constraint":      map[string]any{"type": "waiting_period"},
			"alignment_score": 0.2,
			"contradiction":   true,
			"risk_level":      0.8,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "alignment", out.Mode)

	_, out, err = s.handleScoreRecords(context.Background(), nil, scoreRecordsInput{})
	require.NoError(t, err)
	assert.Equal(t, "clause", out.Mode)
}

func TestHandleIndexPolicy(t *testing.T) {
	s := newTestServer(t, nil)

	_, _, err := s.handleIndexPolicy(context.Background(), nil, indexPolicyInput{})
	assert.ErrorContains(t, err, "policy_id is required")

	_, _, err = s.handleIndexPolicy(context.Background(), nil, indexPolicyInput{PolicyID: "gold"})
	assert.ErrorIs(t, err, evaluation.ErrIndexUnavailable)
}

// memoryIndex records cleared policies.
type memoryIndex struct {
	cleared []string
}

func (m *memoryIndex) IndexClauses(_ context.Context, policyID string, passages []retrieval.Passage) ([]string, error) {
	ids := make([]string, len(passages))
	for i := range passages {
		ids[i] = fmt.Sprintf("%s-%d", policyID, i)
	}
	return ids, nil
}

func (m *memoryIndex) Clear(_ context.Context, policyID string) error {
	m.cleared = append(m.cleared, policyID)
	return nil
}

func TestHandleClearPolicy(t *testing.T) {
	s := newTestServer(t, nil)

	_, _, err := s.handleClearPolicy(context.Background(), nil, clearPolicyInput{PolicyID: " "})
	assert.ErrorContains(t, err, "policy_id is required")

	_, _, err = s.handleClearPolicy(context.Background(), nil, clearPolicyInput{PolicyID: "gold"})
	assert.ErrorIs(t, err, evaluation.ErrIndexUnavailable)

	idx := &memoryIndex{}
	indexed, err := NewServer(nil, evaluation.NewService(nil, evaluation.WithIndex(idx)))
	require.NoError(t, err)
	res, out, err := indexed.handleClearPolicy(context.Background(), nil, clearPolicyInput{PolicyID: "gold"})
	require.NoError(t, err)
	assert.True(t, out.Cleared)
	assert.Equal(t, "gold", out.PolicyID)
	assert.Equal(t, []string{"gold"}, idx.cleared)
	require.Len(t, res.Content, 1)
}

func TestHandleListDiseases(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleListDiseases(context.Background(), nil, listDiseasesInput{})
	require.NoError(t, err)
	assert.Equal(t, 24, out.Count)

	_, out, err = s.handleListDiseases(context.Background(), nil, listDiseasesInput{Category: "oncology"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
}

func TestHandleToolSearch(t *testing.T) {
	s := newTestServer(t, nil)

	_, _, err := s.handleToolSearch(context.Background(), nil, toolSearchInput{})
	assert.Error(t, err)

	_, out, err := s.handleToolSearch(context.Background(), nil, toolSearchInput{Query: "evaluate_claim"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, ToolEvaluateClaim, out.Results[0].Tool.Name)
	assert.Equal(t, 8, out.TotalTools)

	_, out, err = s.handleToolSearch(context.Background(), nil, toolSearchInput{Query: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)

	_, list, err := s.handleToolList(context.Background(), nil, toolListInput{Category: string(CategoryClauses)})
	require.NoError(t, err)
	assert.Equal(t, 4, list.Count)
}

func TestServer_InMemorySession(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 8)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolListDiseases,
		Arguments: map[string]any{"category": "Respiratory"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolAnalyzeClauses,
		Arguments: map[string]any{"disease": "gout"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
