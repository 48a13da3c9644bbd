package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrEmptyQuery is returned for blank queries and zero vectors.
	ErrEmptyQuery = errors.New("empty query")
)

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedDocuments generates embeddings for passages.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is a passage stored in a collection.
type Document struct {
	// ID is the document identifier. Generated when empty.
	ID string

	// Content is the passage text.
	Content string

	// Metadata is stored as strings; non-string values are formatted.
	Metadata map[string]interface{}
}

// SearchResult is a single similarity hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// Store is the subset of vector store operations used by retrieval.
type Store interface {
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)
	Search(ctx context.Context, collection, query string, k int) ([]SearchResult, error)
	SearchByEmbedding(ctx context.Context, collection string, embedding []float32, k int) ([]SearchResult, error)
	Count(ctx context.Context, collection string) (int, error)
	DeleteCollection(ctx context.Context, collection string) error
	Close() error
}

var (
	collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
	collectionNameInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
)

// ValidateCollectionName checks a collection name against ^[a-z0-9_]{1,64}$.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// CollectionName maps a policy identifier onto a valid collection name: a
// readable slug followed by the FNV-1a hash of the trimmed identifier, so
// identifiers that slug alike ("HX-1", "hx_1") stay apart. "HX-2024/gold"
// becomes "policy_hx_2024_gold_4a0c9a67"; a blank id maps to "policy_default".
func CollectionName(policyID string) string {
	id := strings.TrimSpace(policyID)
	if id == "" {
		return "policy_default"
	}
	slug := collectionNameInvalid.ReplaceAllString(strings.ToLower(id), "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "_")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	sum := fmt.Sprintf("%08x", h.Sum32())
	if slug == "" {
		return "policy_" + sum
	}
	return "policy_" + slug + "_" + sum
}

// maxSlugLen keeps "policy_" + slug + "_" + 8 hex digits within 64 characters.
const maxSlugLen = 64 - len("policy_") - 1 - 8

// Normalize returns a unit-length copy of v, or nil for a zero vector.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	norm := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
