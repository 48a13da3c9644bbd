// Package config loads claimd configuration.
//
// Values are layered: Default, then an optional YAML file, then CLAIMD_*
// environment variables. See Load for the mapping.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the complete claimd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Vocabulary  VocabularyConfig  `koanf:"vocabulary"`
	Audit       AuditConfig       `koanf:"audit"`
	RateLimit   RateLimitConfig   `koanf:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"`
	BodyLimit       string   `koanf:"body_limit"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig is the file-facing subset of logging options.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig selects the OTLP collector.
type TelemetryConfig struct {
	Enabled       bool    `koanf:"enabled"`
	Endpoint      string  `koanf:"endpoint"`
	Protocol      string  `koanf:"protocol"`
	Insecure      bool    `koanf:"insecure"`
	TLSSkipVerify bool    `koanf:"tls_skip_verify"`
	SampleRate    float64 `koanf:"sample_rate"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// VectorStoreConfig configures the chromem clause index. An empty Path keeps
// the index in memory.
type VectorStoreConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	CacheDir  string `koanf:"cache_dir"`
	MaxLength int    `koanf:"max_length"`
	Dimension int    `koanf:"dimension"`
}

// RetrievalConfig sets how many clauses each flow retrieves.
type RetrievalConfig struct {
	EvaluateClauses int     `koanf:"evaluate_clauses"`
	AnalyzeClauses  int     `koanf:"analyze_clauses"`
	Boost           float64 `koanf:"boost"`
}

// VocabularyConfig points at an optional keyword and pattern table file.
type VocabularyConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// AuditConfig controls decision event publishing. Embedded runs an
// in-process NATS server, which is meant for development.
type AuditConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      Secret `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
}

// RateLimitConfig is a token bucket applied to /api/v1.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			BodyLimit:       "2M",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			Endpoint:   "localhost:4317",
			Protocol:   "grpc",
			Insecure:   true,
			SampleRate: 1.0,
		},
		Metrics:     MetricsConfig{Enabled: true, Path: "/metrics"},
		VectorStore: VectorStoreConfig{Compress: true},
		Embeddings:  EmbeddingsConfig{Provider: "hash", Dimension: 256},
		Retrieval:   RetrievalConfig{EvaluateClauses: 30, AnalyzeClauses: 15, Boost: 0.15},
		Audit:       AuditConfig{URL: "nats://127.0.0.1:4222"},
		RateLimit:   RateLimitConfig{Enabled: true, RPS: 20, Burst: 40},
	}
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		add("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		add("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry.sample_rate must be between 0 and 1, got %g", c.Telemetry.SampleRate)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	switch c.Embeddings.Provider {
	case "hash", "fastembed":
	default:
		add("embeddings.provider must be hash or fastembed, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension < 0 {
		add("embeddings.dimension must be >= 0, got %d", c.Embeddings.Dimension)
	}
	if c.Retrieval.EvaluateClauses < 1 || c.Retrieval.AnalyzeClauses < 1 {
		add("retrieval clause counts must be >= 1")
	}
	if c.Retrieval.Boost < 0 || c.Retrieval.Boost > 1 {
		add("retrieval.boost must be between 0 and 1, got %g", c.Retrieval.Boost)
	}
	if c.Vocabulary.Watch && c.Vocabulary.Path == "" {
		add("vocabulary.watch requires vocabulary.path")
	}
	if c.Audit.Enabled && !c.Audit.Embedded {
		u, err := url.Parse(c.Audit.URL.Value())
		if err != nil || u.Host == "" {
			add("audit.url must be a nats:// URL when audit is enabled")
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		add("ratelimit.rps must be > 0 and ratelimit.burst >= 1 when enabled")
	}
	return errors.Join(errs...)
}
