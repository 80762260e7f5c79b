// Package app assembles the question-answering pipeline from configuration.
// It is shared by the API server and the prewarm command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"madison-ai/internal/config"
	"madison-ai/internal/handlers"
	"madison-ai/internal/indexcache"
	"madison-ai/internal/library"
	"madison-ai/internal/llm"
	"madison-ai/internal/localindex"
	"madison-ai/internal/rag"
	"madison-ai/internal/storage"
	"madison-ai/internal/vectorstore"
)

// App holds the wired pipeline.
type App struct {
	DB        *sql.DB
	Library   *library.Library
	Engine    rag.Engine
	Prewarmer *rag.Prewarmer
	// HealthChecks probe the index cache and, for the local backend, Qdrant.
	HealthChecks map[string]handlers.HealthCheck

	closers []func() error
}

// New opens storage, selects the retrieval backend and builds the pipeline.
// Close releases everything New opened, also when New fails halfway.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{HealthChecks: make(map[string]handlers.HealthCheck)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.DB, err = storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, a.DB.Close)
	if err := storage.Migrate(a.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	var catalog *library.Catalog
	if cfg.CatalogPath != "" {
		if catalog, err = library.LoadCatalog(cfg.CatalogPath); err != nil {
			return nil, err
		}
	}
	a.Library = library.New(cfg.BooksDir, catalog)

	store, err := a.cacheStore(cfg)
	if err != nil {
		return nil, err
	}
	cache := indexcache.New(store, a.Library)
	a.HealthChecks["index_cache"] = cache.Ping
	slog.Info("Index cache ready", "backend", cfg.CacheBackend)

	pairs := cache
	if !cfg.PromotePairIndexes {
		pairs = indexcache.New(indexcache.NewMemoryStore(), a.Library)
	}

	backend, err := a.backend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	waiter := rag.NewWaiter(backend, cfg.IndexPollInterval, nil)
	indexer := rag.NewIndexer(backend, a.Library, cache, waiter, cfg.IndexWaitTimeout)
	aggregator := rag.NewAggregator(indexer, a.Library, cache, pairs, rag.AggregatePolicy(cfg.AggregatePolicy))

	limiter := rate.NewLimiter(rate.Limit(cfg.ExtractRateLimit), cfg.ExtractBurst)
	dispatcher := rag.NewDispatcher(backend, a.Library, waiter, cfg.IndexWaitTimeout, limiter, cfg.ExtractModelName)
	a.Engine = rag.NewEngine(aggregator, dispatcher, cache, a.Library, rag.DispatchMode(cfg.DispatchMode))

	// Prewarming shares the build locks but waits longer for readiness
	prewarmIndexer := indexer.WithTimeout(cfg.PrewarmWaitTimeout)
	a.Prewarmer = rag.NewPrewarmer(
		prewarmIndexer,
		rag.NewAggregator(prewarmIndexer, a.Library, cache, pairs, rag.AggregatePolicy(cfg.AggregatePolicy)),
		a.Library,
	)
	slog.Info("RAG engine initialized",
		"backend", cfg.RetrievalBackend,
		"dispatch_mode", cfg.DispatchMode,
		"aggregate_policy", cfg.AggregatePolicy,
	)

	return a, nil
}

func (a *App) cacheStore(cfg *config.Config) (indexcache.Store, error) {
	var store indexcache.Store
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		store = storage.NewIndexCacheRepo(a.DB)
	case config.CacheBolt:
		bolt, err := indexcache.NewBoltStore(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		store = bolt
	default:
		store = indexcache.NewFileStore(cfg.CachePath)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *App) backend(ctx context.Context, cfg *config.Config) (rag.Backend, error) {
	client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	if cfg.RetrievalBackend != config.BackendLocal {
		return client, nil
	}

	vectors, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	a.closers = append(a.closers, vectors.Close)

	// Ensure collection exists with correct vector size
	if err := vectors.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	a.HealthChecks["vector_store"] = func(ctx context.Context) error {
		if err := vectors.Health(ctx); err != nil {
			return err
		}
		exists, err := vectors.CollectionExists(ctx, cfg.QdrantCollection)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("collection %s does not exist", cfg.QdrantCollection)
		}
		return nil
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	return localindex.NewBackend(
		storage.NewIndexRepo(a.DB),
		storage.NewDocumentRepo(a.DB),
		storage.NewChunkRepo(a.DB),
		embedder,
		client,
		vectors,
		cfg.QdrantCollection,
	), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
