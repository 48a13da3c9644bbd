package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/audit"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
	"github.com/fyrsmithlabs/claimd/internal/risk"
	"github.com/fyrsmithlabs/claimd/internal/vocabulary"
)

type fakeRetriever struct {
	mu      sync.Mutex
	queries []retrieval.Query
	clauses []clause.Clause
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, q retrieval.Query) ([]clause.Clause, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.clauses, f.err
}

type fakeIndex struct {
	cleared []string
	indexed map[string][]retrieval.Passage
}

func (f *fakeIndex) IndexClauses(_ context.Context, policyID string, passages []retrieval.Passage) ([]string, error) {
	if len(passages) == 0 {
		return nil, retrieval.ErrNoPassages
	}
	if f.indexed == nil {
		f.indexed = map[string][]retrieval.Passage{}
	}
	f.indexed[policyID] = append(f.indexed[policyID], passages...)
	ids := make([]string, len(passages))
	for i := range passages {
		ids[i] = policyID + "-" + string(rune('a'+i))
	}
	return ids, nil
}

func (f *fakeIndex) Clear(_ context.Context, policyID string) error {
	f.cleared = append(f.cleared, policyID)
	delete(f.indexed, policyID)
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func policyClauses() []clause.Clause {
	return []clause.Clause{
		{ID: "clause_1", Text: "Diabetes shall be covered after a waiting period of 2 years", Page: 4, SimilarityScore: 0.8},
		{ID: "clause_2", Text: "Cover is available up to age 65", Page: 2, SimilarityScore: 0.7},
	}
}

func patient() *alignment.PatientProfile {
	return &alignment.PatientProfile{
		Age:                   70,
		PreExistingConditions: []string{"diabetes"},
		EnrollmentDate:        "2023-01-01",
		ApplicationDate:       "2023-06-01",
	}
}

func TestService_EvaluateClaim(t *testing.T) {
	tl := logging.NewTestLogger()
	pub := &capturePublisher{}
	svc := NewService(nil, WithLogger(tl.Logger), WithPublisher(pub))

	before := testutil.ToFloat64(EvaluationsTotal.WithLabelValues(string(decision.Rejected)))

	report, err := svc.EvaluateClaim(context.Background(), ClaimRequest{
		Patient:  patient(),
		Disease:  "diabetes_type_2",
		PolicyID: "gold",
		Clauses:  policyClauses(),
	})
	require.NoError(t, err)

	_, err = uuid.Parse(report.EvaluationID)
	assert.NoError(t, err)
	assert.Equal(t, "gold", report.PolicyID)
	assert.Equal(t, "Endocrine", report.DiseaseCategory)
	assert.Equal(t, "Diabetes Type 2", report.Disease)
	assert.Equal(t, decision.Rejected, report.Decision)
	assert.Equal(t, "Waiting period not met: 151/730 days", report.Reason)
	assert.Equal(t, "gold", report.Patient.PolicyID)

	assert.Equal(t, before+1, testutil.ToFloat64(EvaluationsTotal.WithLabelValues(string(decision.Rejected))))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, report.EvaluationID, ev.EvaluationID)
	assert.Equal(t, "gold", ev.PolicyID)
	assert.Equal(t, "REJECTED", ev.Decision)
	assert.Equal(t, 2, ev.CriticalContradictions)
	assert.Equal(t, 3, ev.TotalConstraints)
	assert.Equal(t, report.CDS, ev.CDS)

	tl.AssertLogged(t, zapcore.InfoLevel, "claim evaluated")
	tl.AssertField(t, "claim evaluated", "evaluation.id", report.EvaluationID)
	tl.AssertNoPatientData(t)
}

func TestService_EvaluateClaimRetrieves(t *testing.T) {
	r := &fakeRetriever{clauses: policyClauses()}
	svc := NewService(nil, WithRetriever(r), WithConfig(Config{EvaluateClauses: 12}))

	report, err := svc.EvaluateClaim(context.Background(), ClaimRequest{
		Patient:  &alignment.PatientProfile{Age: 40, EnrollmentDate: "2020-01-01", ApplicationDate: "2024-01-01"},
		Disease:  "asthma",
		PolicyID: "silver",
	})
	require.NoError(t, err)
	assert.Equal(t, decision.Accepted, report.Decision)

	require.Len(t, r.queries, 1)
	q := r.queries[0]
	assert.Equal(t, "silver", q.PolicyID)
	assert.Equal(t, "Asthma", q.Disease.Label)
	assert.Equal(t, 12, q.N)
	assert.False(t, q.Boost, "the evaluate flow ranks by raw similarity")
}

func TestService_EvaluateClaimUnknownDisease(t *testing.T) {
	r := &fakeRetriever{clauses: policyClauses()}
	svc := NewService(nil, WithRetriever(r))

	report, err := svc.EvaluateClaim(context.Background(), ClaimRequest{Patient: patient(), Disease: "gout"})
	require.NoError(t, err)
	assert.Equal(t, "gout", report.Disease)
	assert.Equal(t, "General", report.DiseaseCategory)
	assert.Equal(t, "gout", r.queries[0].Disease.Label)
}

func TestService_EvaluateClaimErrors(t *testing.T) {
	withRetriever := NewService(nil, WithRetriever(&fakeRetriever{err: retrieval.ErrPolicyNotIndexed}))
	bare := NewService(nil)

	tests := []struct {
		name string
		svc  *Service
		req  ClaimRequest
		want error
	}{
		{"missing patient", bare, ClaimRequest{Disease: "asthma", Clauses: policyClauses()}, ErrPatientRequired},
		{"negative age", bare, ClaimRequest{Patient: &alignment.PatientProfile{Age: -1}, Clauses: policyClauses()}, ErrInvalidPatient},
		{"bad date", bare, ClaimRequest{Patient: &alignment.PatientProfile{EnrollmentDate: "01/02/2024"}, Clauses: policyClauses()}, ErrInvalidPatient},
		{"no clause source", bare, ClaimRequest{Patient: patient(), Disease: "asthma"}, ErrNoClauseSource},
		{"no disease to retrieve", withRetriever, ClaimRequest{Patient: patient()}, ErrDiseaseRequired},
		{"policy not indexed", withRetriever, ClaimRequest{Patient: patient(), Disease: "asthma"}, retrieval.ErrPolicyNotIndexed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.EvaluateClaim(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_PublishFailureIsLogged(t *testing.T) {
	tl := logging.NewTestLogger()
	svc := NewService(nil,
		WithLogger(tl.Logger),
		WithPublisher(&capturePublisher{err: errors.New("nats down")}),
	)

	_, err := svc.EvaluateClaim(context.Background(), ClaimRequest{Patient: patient(), Clauses: policyClauses()})
	require.NoError(t, err)
	tl.AssertLogged(t, zapcore.WarnLevel, "audit publish failed")
}

func TestService_EvaluateClaimNumbersClauses(t *testing.T) {
	svc := NewService(nil)
	report, err := svc.EvaluateClaim(context.Background(), ClaimRequest{
		Patient: patient(),
		Clauses: []clause.Clause{{Text: "Asthma is covered."}, {ID: "mine", Text: "Exclusions apply."}},
	})
	require.NoError(t, err)
	require.Len(t, report.Clauses, 2)
	assert.Equal(t, "clause_1", report.Clauses[0].ID)
	assert.Equal(t, "mine", report.Clauses[1].ID)
}

func TestService_AnalyzeClauses(t *testing.T) {
	r := &fakeRetriever{clauses: policyClauses()}
	svc := NewService(nil, WithRetriever(r))

	report, err := svc.AnalyzeClauses(context.Background(), AnalyzeRequest{Disease: "diabetes_type_2", PolicyID: "gold"})
	require.NoError(t, err)

	require.Len(t, r.queries, 1)
	assert.Equal(t, DefaultAnalyzeClauses, r.queries[0].N)
	assert.True(t, r.queries[0].Boost)

	assert.Equal(t, "Diabetes Type 2", report.Disease)
	assert.Equal(t, "Endocrine", report.DiseaseCategory)
	assert.Len(t, report.QueriesUsed, 5)
	assert.Equal(t, 2, report.TotalClausesFound)
	assert.Equal(t, risk.ModeClause, report.Mode)

	_, err = svc.AnalyzeClauses(context.Background(), AnalyzeRequest{Disease: "asthma", N: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, r.queries[1].N)
}

func TestService_AnalyzeClausesErrors(t *testing.T) {
	svc := NewService(nil)
	tests := []struct {
		name string
		req  AnalyzeRequest
		want error
	}{
		{"missing disease", AnalyzeRequest{}, ErrDiseaseRequired},
		{"unknown disease", AnalyzeRequest{Disease: "gout"}, ErrUnknownDisease},
		{"no clause source", AnalyzeRequest{Disease: "asthma"}, ErrNoClauseSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeClauses(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ScoreRecords(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	clauses, err := svc.ScoreRecords(ctx, []byte(`[{"text":"Diabetes is covered under this policy","similarity_score":0.9}]`), "diabetes_type_2")
	require.NoError(t, err)
	assert.Equal(t, risk.ModeClause, clauses.Mode)

	aligned, err := svc.ScoreRecords(ctx, []byte(`[{"constraint":{"type":"waiting_period"},"alignment_score":0.2,"contradiction":true,"risk_level":0.8}]`), "")
	require.NoError(t, err)
	assert.Equal(t, risk.ModeAlignment, aligned.Mode)

	_, err = svc.ScoreRecords(ctx, []byte(`{"not":"an array"}`), "")
	assert.ErrorIs(t, err, ErrInvalidRecords)
	assert.True(t, IsClientError(err))
}

func TestService_IndexPolicy(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(nil).IndexPolicy(ctx, IndexRequest{PolicyID: "gold"})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, NewService(nil).ClearPolicy(ctx, "gold"), ErrIndexUnavailable)

	ix := &fakeIndex{}
	svc := NewService(nil, WithIndex(ix))

	report, err := svc.IndexPolicy(ctx, IndexRequest{
		PolicyID: "gold",
		Passages: []retrieval.Passage{{Text: "Diabetes is covered."}, {Text: "Cancer is excluded.", Page: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gold-a", "gold-b"}, report.IDs)
	assert.Empty(t, ix.cleared)

	_, err = svc.IndexPolicy(ctx, IndexRequest{PolicyID: "gold", Replace: true, Passages: []retrieval.Passage{{Text: "New text."}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gold"}, ix.cleared)
	assert.Len(t, ix.indexed["gold"], 1)

	_, err = svc.IndexPolicy(ctx, IndexRequest{PolicyID: "gold"})
	assert.ErrorIs(t, err, retrieval.ErrNoPassages)

	require.NoError(t, svc.ClearPolicy(ctx, "gold"))
	assert.Empty(t, ix.indexed["gold"])
}

func TestService_Reload(t *testing.T) {
	svc := NewService(nil)
	original := svc.Engine()
	before := testutil.ToFloat64(EngineReloads)

	svc.Reload(nil)
	svc.SetEngine(nil)
	assert.Same(t, original, svc.Engine())

	svc.Reload(vocabulary.Defaults())
	assert.NotSame(t, original, svc.Engine())
	assert.Equal(t, before+1, testutil.ToFloat64(EngineReloads))
}

func TestService_Diseases(t *testing.T) {
	assert.Len(t, NewService(nil).Diseases(), 24)
}

func TestService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err := NewService(nil).EvaluateClaim(context.Background(), ClaimRequest{Patient: patient(), Clauses: policyClauses()})
	require.NoError(t, err)

	var found bool
	for _, s := range recorder.Ended() {
		if s.Name() != "evaluation.EvaluateClaim" {
			continue
		}
		found = true
		for _, kv := range s.Attributes() {
			if kv.Key == "decision" {
				assert.Equal(t, "REJECTED", kv.Value.AsString())
			}
		}
	}
	assert.True(t, found)
}
