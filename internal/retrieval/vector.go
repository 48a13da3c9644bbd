package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("claimd.retrieval")

// VectorRetriever implements Retriever and Index over a vector store.
type VectorRetriever struct {
	store    vectorstore.Store
	embedder vectorstore.Embedder
	logger   *zap.Logger
	boost    float64

	mu    sync.RWMutex
	cache map[string][]float32
}

// VectorRetrieverOption configures a VectorRetriever.
type VectorRetrieverOption func(*VectorRetriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBoost overrides DefaultBoost.
func WithBoost(b float64) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		r.boost = b
	}
}

// NewVectorRetriever creates a retriever over store. embedder must be the
// one the store was built with.
func NewVectorRetriever(store vectorstore.Store, embedder vectorstore.Embedder, opts ...VectorRetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
		boost:    DefaultBoost,
		cache:    make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IndexClauses embeds and stores passages in the policy's collection.
func (r *VectorRetriever) IndexClauses(ctx context.Context, policyID string, passages []Passage) ([]string, error) {
	if len(passages) == 0 {
		return nil, ErrNoPassages
	}
	docs := make([]vectorstore.Document, 0, len(passages))
	for i, p := range passages {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("passage %d: empty text", i)
		}
		page := p.Page
		if page <= 0 {
			page = clause.DefaultPage
		}
		docs = append(docs, vectorstore.Document{
			ID:      p.ID,
			Content: p.Text,
			Metadata: map[string]interface{}{
				"page":      page,
				"policy_id": policyID,
			},
		})
	}

	collection := vectorstore.CollectionName(policyID)
	ids, err := r.store.AddDocuments(ctx, collection, docs)
	if err != nil {
		return nil, fmt.Errorf("indexing policy %q: %w", policyID, err)
	}
	r.logger.Info("indexed policy passages",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

// Clear drops every passage indexed for the policy.
func (r *VectorRetriever) Clear(ctx context.Context, policyID string) error {
	if err := r.store.DeleteCollection(ctx, vectorstore.CollectionName(policyID)); err != nil {
		return fmt.Errorf("clearing policy %q: %w", policyID, err)
	}
	return nil
}

// Retrieve returns up to q.N clauses for q.Disease from q.PolicyID.
func (r *VectorRetriever) Retrieve(ctx context.Context, q Query) ([]clause.Clause, error) {
	ctx, span := tracer.Start(ctx, "VectorRetriever.Retrieve")
	defer span.End()

	span.SetAttributes(
		attribute.String("disease", q.Disease.Value),
		attribute.Int("n", q.N),
		attribute.Bool("boost", q.Boost),
	)

	if strings.TrimSpace(q.Disease.Label) == "" {
		return nil, ErrEmptyQuery
	}
	if q.N <= 0 {
		return []clause.Clause{}, nil
	}

	vec, err := r.queryEmbedding(ctx, q.Disease)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	fetch := q.N
	if q.Boost {
		fetch = 2 * q.N
	}
	results, err := r.store.SearchByEmbedding(ctx, vectorstore.CollectionName(q.PolicyID), vec, fetch)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrPolicyNotIndexed, q.PolicyID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching policy %q: %w", q.PolicyID, err)
	}

	label := strings.ToLower(q.Disease.Label)
	clauses := make([]clause.Clause, len(results))
	for i, res := range results {
		score := float64(res.Score)
		if q.Boost && strings.Contains(strings.ToLower(res.Content), label) {
			score = min(score+r.boost, 1.0)
		}
		clauses[i] = clause.Clause{
			ID:              "clause_" + strconv.Itoa(i+1),
			Text:            res.Content,
			Page:            pageOf(res.Metadata),
			SimilarityScore: score,
		}
	}

	if q.Boost {
		slices.SortStableFunc(clauses, func(a, b clause.Clause) int {
			return cmp.Compare(b.SimilarityScore, a.SimilarityScore)
		})
		if len(clauses) > q.N {
			clauses = clauses[:q.N]
		}
	}

	span.SetAttributes(attribute.Int("results", len(clauses)))
	span.SetStatus(codes.Ok, "success")
	r.logger.Debug("retrieved clauses",
		zap.String("disease", q.Disease.Label),
		zap.Int("requested", q.N),
		zap.Int("returned", len(clauses)),
	)
	return clauses, nil
}

// queryEmbedding averages the summary query (weighted) with every phrasing
// of the disease and normalizes the result.
func (r *VectorRetriever) queryEmbedding(ctx context.Context, d disease.Disease) ([]float32, error) {
	key := d.Label + "\x00" + d.Category
	r.mu.RLock()
	vec, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return vec, nil
	}

	queries := append([]string{disease.SummaryQuery(d)}, disease.Queries(d)...)
	var (
		sum    []float32
		weight float64
	)
	for i, q := range queries {
		e, err := r.embedder.EmbedQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vectorstore.ErrEmbeddingFailed, err)
		}
		if sum == nil {
			sum = make([]float32, len(e))
		}
		if len(e) != len(sum) {
			return nil, fmt.Errorf("%w: inconsistent dimensions %d and %d", vectorstore.ErrEmbeddingFailed, len(sum), len(e))
		}
		w := 1.0
		if i == 0 {
			w = disease.SummaryWeight
		}
		for j, x := range e {
			sum[j] += float32(w) * x
		}
		weight += w
	}
	for j := range sum {
		sum[j] /= float32(weight)
	}

	vec = vectorstore.Normalize(sum)
	if vec == nil {
		return nil, fmt.Errorf("%w: zero query vector for %q", vectorstore.ErrEmbeddingFailed, d.Label)
	}

	r.mu.Lock()
	r.cache[key] = vec
	r.mu.Unlock()

	r.logger.Debug("built disease query embedding",
		zap.String("disease", d.Label),
		zap.Int("queries", len(queries)),
	)
	return vec, nil
}

func pageOf(meta map[string]interface{}) int {
	switch v := meta["page"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return clause.DefaultPage
}

var (
	_ Retriever = (*VectorRetriever)(nil)
	_ Index     = (*VectorRetriever)(nil)
)
