package embeddings

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/claimd/internal/vectorstore"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider names accepted by NewProvider.
const (
	ProviderFastEmbed = "fastembed"
	ProviderHash      = "hash"
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Name identifies the model in logs and metrics.
	Name() string
	// Close releases resources held by the provider.
	Close() error
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "fastembed" (default) or "hash".
	Provider string `koanf:"provider"`
	// Model is the FastEmbed model name.
	Model string `koanf:"model"`
	// CacheDir is the FastEmbed model cache directory.
	CacheDir string `koanf:"cache_dir"`
	// MaxLength is the FastEmbed maximum input sequence length.
	MaxLength int `koanf:"max_length"`
	// Dimension is the vector size of the hash provider.
	Dimension int `koanf:"dimension"`
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderFastEmbed, "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderHash:
		p, err := NewHashProvider(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
