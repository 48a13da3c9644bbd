package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/claimd/internal/audit"
	"github.com/fyrsmithlabs/claimd/internal/config"
	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/embeddings"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
	"github.com/fyrsmithlabs/claimd/internal/vectorstore"
	"github.com/fyrsmithlabs/claimd/internal/vocabulary"
)

// dependencies holds everything the servers share.
type dependencies struct {
	service  *evaluation.Service
	embedder embeddings.Provider
	store    *vectorstore.ChromemStore
	nats     *natsserver.Server
	audit    *audit.NATSPublisher
	watcher  *vocabulary.Watcher
	logger   *logging.Logger
}

// initDependencies builds the evaluation service and its collaborators.
// On error everything created so far is released.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *dependencies, err error) {
	d := &dependencies{logger: logger}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()
	zl := logger.Underlying()

	// Embeddings
	provider, err := embeddings.NewProvider(embeddings.Config{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		CacheDir:  cfg.Embeddings.CacheDir,
		MaxLength: cfg.Embeddings.MaxLength,
		Dimension: cfg.Embeddings.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	d.embedder = embeddings.Instrument(provider, embeddings.NewMetrics(zl))
	logger.Info(ctx, "embeddings provider initialized",
		zap.String("provider", d.embedder.Name()),
		zap.Int("dimension", d.embedder.Dimension()),
	)

	// Clause index
	d.store, err = vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       cfg.VectorStore.Path,
		Compress:   cfg.VectorStore.Compress,
		VectorSize: d.embedder.Dimension(),
	}, d.embedder, zl)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	retriever := retrieval.NewVectorRetriever(d.store, d.embedder,
		retrieval.WithLogger(zl),
		retrieval.WithBoost(cfg.Retrieval.Boost),
	)

	// Vocabulary
	engine, err := loadEngine(cfg.Vocabulary)
	if err != nil {
		return nil, err
	}

	// Audit
	publisher, err := d.initAudit(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	d.service = evaluation.NewService(engine,
		evaluation.WithRetriever(retriever),
		evaluation.WithIndex(retriever),
		evaluation.WithPublisher(publisher),
		evaluation.WithLogger(logger),
		evaluation.WithConfig(evaluation.Config{
			EvaluateClauses: cfg.Retrieval.EvaluateClauses,
			AnalyzeClauses:  cfg.Retrieval.AnalyzeClauses,
		}),
	)

	if cfg.Vocabulary.Path != "" && cfg.Vocabulary.Watch {
		d.watcher, err = vocabulary.NewWatcher(cfg.Vocabulary.Path, zl, d.service.Reload)
		if err != nil {
			return nil, fmt.Errorf("vocabulary watcher: %w", err)
		}
		if err := d.watcher.Start(ctx); err != nil {
			return nil, fmt.Errorf("vocabulary watcher: %w", err)
		}
	}
	return d, nil
}

// loadEngine builds the decision engine from the vocabulary file, or from
// the built-in tables when no file is configured.
func loadEngine(cfg config.VocabularyConfig) (*decision.Engine, error) {
	if cfg.Path == "" {
		return vocabulary.Defaults().Engine(), nil
	}
	tables, err := vocabulary.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	return tables.Engine(), nil
}

// initAudit returns the publisher for decision events. With Embedded set
// an in-process NATS server is started and used instead of URL.
func (d *dependencies) initAudit(ctx context.Context, cfg config.AuditConfig) (audit.Publisher, error) {
	if !cfg.Enabled {
		return audit.NopPublisher{}, nil
	}

	url := cfg.URL.Value()
	if cfg.Embedded {
		ns, err := startEmbeddedNATS()
		if err != nil {
			return nil, err
		}
		d.nats = ns
		url = ns.ClientURL()
		d.logger.Info(ctx, "embedded NATS server started", zap.String("url", url))
	}
	if url == "" {
		return nil, errors.New("audit enabled without a NATS url")
	}

	pub, err := audit.Connect(url, d.logger.Underlying())
	if err != nil {
		return nil, err
	}
	d.audit = pub
	return pub, nil
}

func startEmbeddedNATS() (*natsserver.Server, error) {
	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("embedded nats: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded nats: not ready for connections")
	}
	return ns, nil
}

// Close releases resources in reverse order of creation.
func (d *dependencies) Close() {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.audit != nil {
		if err := d.audit.Close(); err != nil {
			d.logger.Warn(context.Background(), "closing audit publisher", zap.Error(err))
		}
	}
	if d.nats != nil {
		d.nats.Shutdown()
		d.nats.WaitForShutdown()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn(context.Background(), "closing vector store", zap.Error(err))
		}
	}
	if d.embedder != nil {
		if err := d.embedder.Close(); err != nil {
			d.logger.Warn(context.Background(), "closing embeddings provider", zap.Error(err))
		}
	}
}
