package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/embeddings"
	"github.com/fyrsmithlabs/claimd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore returns canned results in the given order.
type fakeStore struct {
	results    []vectorstore.SearchResult
	lastK      int
	lastColl   string
	searchErr  error
	added      []vectorstore.Document
	deleted    string
	searchHits int
}

func (f *fakeStore) AddDocuments(_ context.Context, coll string, docs []vectorstore.Document) ([]string, error) {
	f.lastColl = coll
	f.added = append(f.added, docs...)
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = "id" + string(rune('a'+i))
	}
	return ids, nil
}

func (f *fakeStore) Search(context.Context, string, string, int) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) SearchByEmbedding(_ context.Context, coll string, _ []float32, k int) ([]vectorstore.SearchResult, error) {
	f.searchHits++
	f.lastColl = coll
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[:min(k, len(f.results))], nil
}

func (f *fakeStore) Count(context.Context, string) (int, error) { return len(f.results), nil }

func (f *fakeStore) DeleteCollection(_ context.Context, coll string) error {
	f.deleted = coll
	return nil
}

func (f *fakeStore) Close() error { return nil }

// countingEmbedder wraps the hash provider and counts EmbedQuery calls.
type countingEmbedder struct {
	*embeddings.HashProvider
	calls int
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.HashProvider.EmbedQuery(ctx, text)
}

func newCountingEmbedder(t *testing.T) *countingEmbedder {
	t.Helper()
	h, err := embeddings.NewHashProvider(128)
	require.NoError(t, err)
	return &countingEmbedder{HashProvider: h}
}

func diabetes(t *testing.T) disease.Disease {
	t.Helper()
	d, ok := disease.Lookup("diabetes_type_2")
	require.True(t, ok)
	return d
}

func TestRetrieve_BoostReordersAndTrims(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{Content: "Hospitalization expenses are reimbursed.", Score: 0.80, Metadata: map[string]interface{}{"page": "2"}},
		{Content: "Diabetes Type 2 is covered after 2 years.", Score: 0.70, Metadata: map[string]interface{}{"page": "5"}},
		{Content: "Cosmetic surgery is excluded.", Score: 0.60},
		{Content: "DIABETES TYPE 2 complications are excluded.", Score: 0.95},
	}}
	r := NewVectorRetriever(store, newCountingEmbedder(t), WithLogger(zaptest.NewLogger(t)))

	got, err := r.Retrieve(context.Background(), Query{PolicyID: "HX-1", Disease: diabetes(t), N: 2, Boost: true})
	require.NoError(t, err)

	assert.Equal(t, 4, store.lastK, "boosted retrieval fetches 2N")
	assert.Equal(t, "policy_hx_1_3395edd3", store.lastColl)
	require.Len(t, got, 2)

	// Capped at 1 after the boost.
	assert.Equal(t, "clause_4", got[0].ID)
	assert.InDelta(t, 1.0, got[0].SimilarityScore, 1e-9)
	assert.Equal(t, 1, got[0].Page)

	assert.Equal(t, "clause_2", got[1].ID)
	assert.InDelta(t, 0.85, got[1].SimilarityScore, 1e-6)
	assert.Equal(t, 5, got[1].Page)
}

func TestRetrieve_PlainKeepsRawOrder(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{Content: "Hospitalization expenses are reimbursed.", Score: 0.8},
		{Content: "Diabetes Type 2 is covered after 2 years.", Score: 0.7},
	}}
	r := NewVectorRetriever(store, newCountingEmbedder(t))

	got, err := r.Retrieve(context.Background(), Query{PolicyID: "HX-1", Disease: diabetes(t), N: 30})
	require.NoError(t, err)
	assert.Equal(t, 30, store.lastK)
	require.Len(t, got, 2)
	assert.Equal(t, "clause_1", got[0].ID)
	assert.InDelta(t, 0.8, got[0].SimilarityScore, 1e-6)
	assert.InDelta(t, 0.7, got[1].SimilarityScore, 1e-6)
}

func TestRetrieve_CachesQueryEmbedding(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{{Content: "x", Score: 0.5}}}
	emb := newCountingEmbedder(t)
	r := NewVectorRetriever(store, emb)
	d := diabetes(t)

	_, err := r.Retrieve(context.Background(), Query{Disease: d, N: 1})
	require.NoError(t, err)
	first := emb.calls
	assert.Equal(t, len(disease.Queries(d))+1, first)

	_, err = r.Retrieve(context.Background(), Query{Disease: d, N: 1})
	require.NoError(t, err)
	assert.Equal(t, first, emb.calls)
}

func TestRetrieve_Errors(t *testing.T) {
	store := &fakeStore{searchErr: vectorstore.ErrCollectionNotFound}
	r := NewVectorRetriever(store, newCountingEmbedder(t))
	ctx := context.Background()

	_, err := r.Retrieve(ctx, Query{Disease: disease.Disease{}, N: 5})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = r.Retrieve(ctx, Query{PolicyID: "missing", Disease: diabetes(t), N: 5})
	assert.ErrorIs(t, err, ErrPolicyNotIndexed)

	got, err := r.Retrieve(ctx, Query{Disease: diabetes(t), N: 0})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, store.searchHits)
}

func TestIndexClauses(t *testing.T) {
	store := &fakeStore{}
	r := NewVectorRetriever(store, newCountingEmbedder(t))
	ctx := context.Background()

	ids, err := r.IndexClauses(ctx, "HX-1", []Passage{
		{Text: "Diabetes is covered.", Page: 3},
		{ID: "custom", Text: "Cancer is excluded."},
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, "policy_hx_1_3395edd3", store.lastColl)
	require.Len(t, store.added, 2)
	assert.Equal(t, 3, store.added[0].Metadata["page"])
	assert.Equal(t, 1, store.added[1].Metadata["page"])
	assert.Equal(t, "custom", store.added[1].ID)
	assert.Equal(t, "HX-1", store.added[1].Metadata["policy_id"])

	_, err = r.IndexClauses(ctx, "HX-1", nil)
	assert.ErrorIs(t, err, ErrNoPassages)

	_, err = r.IndexClauses(ctx, "HX-1", []Passage{{Text: "  "}})
	assert.Error(t, err)

	require.NoError(t, r.Clear(ctx, "HX-1"))
	assert.Equal(t, "policy_hx_1_3395edd3", store.deleted)
}

func TestVectorRetriever_EndToEnd(t *testing.T) {
	ctx := context.Background()
	emb, err := embeddings.NewHashProvider(512)
	require.NoError(t, err)
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{VectorSize: emb.Dimension()}, emb, zaptest.NewLogger(t))
	require.NoError(t, err)

	r := NewVectorRetriever(store, emb)
	_, err = r.IndexClauses(ctx, "gold", []Passage{
		{Text: "Dental implants and cosmetic surgery are not payable.", Page: 1},
		{Text: "Diabetes Type 2 treatment is covered after a waiting period of 24 months.", Page: 4},
		{Text: "Maternity benefits apply after nine months.", Page: 6},
	})
	require.NoError(t, err)

	got, err := r.Retrieve(ctx, Query{PolicyID: "gold", Disease: diabetes(t), N: 2, Boost: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Text, "Diabetes Type 2")
	assert.Equal(t, 4, got[0].Page)
	assert.LessOrEqual(t, got[0].SimilarityScore, 1.0)
}

func TestPageOf(t *testing.T) {
	assert.Equal(t, 7, pageOf(map[string]interface{}{"page": "7"}))
	assert.Equal(t, 7, pageOf(map[string]interface{}{"page": 7}))
	assert.Equal(t, 1, pageOf(map[string]interface{}{"page": "abc"}))
	assert.Equal(t, 1, pageOf(nil))
}
