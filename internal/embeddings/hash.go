package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector size of the hash provider.
const DefaultHashDimension = 256

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// HashProvider embeds text by hashing word unigrams and bigrams into a fixed
// number of signed buckets. Similarity reflects shared vocabulary only, which
// suits keyword-heavy policy text and needs no model files.
type HashProvider struct {
	dimension int
}

// NewHashProvider returns a HashProvider. dim <= 0 selects DefaultHashDimension.
func NewHashProvider(dim int) (*HashProvider, error) {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	if dim < 16 {
		return nil, fmt.Errorf("%w: hash dimension must be at least 16, got %d", ErrInvalidConfig, dim)
	}
	return &HashProvider{dimension: dim}, nil
}

func (p *HashProvider) embed(text string) ([]float32, error) {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in %q", ErrEmptyInput, text)
	}

	vec := make([]float32, p.dimension)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: zero vector for %q", ErrEmbeddingFailed, text)
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= norm
	}
	return vec, nil
}

func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[sum%uint64(p.dimension)] += weight
}

// EmbedDocuments embeds each text independently.
func (p *HashProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := p.embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EmbedQuery embeds a single query.
func (p *HashProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.embed(text)
}

// Dimension returns the configured vector size.
func (p *HashProvider) Dimension() int { return p.dimension }

// Name returns "hash-<dimension>".
func (p *HashProvider) Name() string { return fmt.Sprintf("hash-%d", p.dimension) }

// Close is a no-op.
func (p *HashProvider) Close() error { return nil }
