package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/indexcache"
	"madison-ai/internal/library"
	"madison-ai/internal/llm"
)

// ErrIndexFailed is returned when the service reports an index as failed.
var ErrIndexFailed = errors.New("index build failed")

// indexConcurrency bounds simultaneous document builds in one batch.
const indexConcurrency = 4

// Indexer builds service indexes for documents and aggregates, reusing
// cached ones while their content is unchanged.
type Indexer struct {
	backend Backend
	docs    Documents
	cache   *indexcache.Cache
	waiter  *Waiter
	timeout time.Duration

	// locks serializes builds per cache key so concurrent requests for the
	// same document share one build.
	locks *sync.Map
}

// NewIndexer creates an indexer. timeout bounds each readiness wait.
func NewIndexer(backend Backend, docs Documents, cache *indexcache.Cache, waiter *Waiter, timeout time.Duration) *Indexer {
	return &Indexer{
		backend: backend,
		docs:    docs,
		cache:   cache,
		waiter:  waiter,
		timeout: timeout,
		locks:   &sync.Map{},
	}
}

// WithTimeout returns an indexer sharing ix's cache and build locks but
// waiting up to timeout for readiness.
func (ix *Indexer) WithTimeout(timeout time.Duration) *Indexer {
	c := *ix
	c.timeout = timeout
	return &c
}

func (ix *Indexer) lock(key string) func() {
	v, _ := ix.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// EnsureDocument returns a cache record for label whose index was built from
// the document's current bytes, building it first when the cache has none or
// the content changed. built reports whether a build happened.
func (ix *Indexer) EnsureDocument(ctx context.Context, label string) (rec indexcache.Record, built bool, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	unlock := ix.lock(label)
	defer unlock()

	cached, hash, fresh, err := ix.cache.Fresh(ctx, label)
	if err != nil {
		return indexcache.Record{}, false, err
	}
	if fresh {
		logger.DebugContext(ctx, "index cache hit", "label", label, "index_id", cached.IndexID)
		return cached, false, nil
	}

	doc, err := ix.docs.Lookup(label)
	if err != nil {
		return indexcache.Record{}, false, err
	}
	data, err := ix.docs.Read(label)
	if err != nil {
		return indexcache.Record{}, false, err
	}
	// The upload is what gets indexed, so its bytes define the hash.
	if h := indexcache.ContentHash(data); h != hash {
		logger.DebugContext(ctx, "document changed while indexing", "label", label)
		hash = h
	}

	logger.InfoContext(ctx, "building document index", "label", label, "stale", cached.IndexID != "")

	indexID, err := ix.backend.CreateIndex(ctx, indexName(label))
	if err != nil {
		return indexcache.Record{}, false, fmt.Errorf("failed to create index for %q: %w", label, err)
	}
	documentID, err := ix.backend.UploadDocument(ctx, filepath.Base(doc.Path), data)
	if err != nil {
		return indexcache.Record{}, false, fmt.Errorf("failed to upload %q: %w", label, err)
	}
	if err := ix.backend.AttachDocuments(ctx, indexID, []string{documentID}); err != nil {
		return indexcache.Record{}, false, fmt.Errorf("failed to attach %q: %w", label, err)
	}
	if err := ix.await(ctx, indexID); err != nil {
		return indexcache.Record{}, false, err
	}

	rec = indexcache.Record{ContentHash: hash, IndexID: indexID, DocumentID: documentID}
	ix.store(ctx, ix.cache, label, rec)

	logger.InfoContext(ctx, "document index ready", "label", label, "index_id", indexID, "document_id", documentID)
	return rec, true, nil
}

// BatchResult is the outcome of EnsureDocuments.
type BatchResult struct {
	Records map[string]indexcache.Record
	Built   []string
	Missing []string
}

// EnsureDocuments runs EnsureDocument for every label concurrently. Labels
// without a backing file are reported in Missing and do not fail the batch.
// Other failures are joined into the returned error; records for the
// labels that succeeded are returned regardless.
func (ix *Indexer) EnsureDocuments(ctx context.Context, labels []string) (BatchResult, error) {
	result := BatchResult{Records: make(map[string]indexcache.Record, len(labels))}
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(indexConcurrency)

	for _, label := range labels {
		g.Go(func() error {
			rec, built, err := ix.EnsureDocument(ctx, label)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, library.ErrNotFound):
				contextutil.LoggerFromContext(ctx).WarnContext(ctx, "selected document not found, skipping", "label", label)
				result.Missing = append(result.Missing, label)
			case err != nil:
				errs = append(errs, err)
			default:
				result.Records[label] = rec
				if built {
					result.Built = append(result.Built, label)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return result, errors.Join(errs...)
}

// EnsureAggregate returns the record stored under key in target when its
// combined hash matches, or builds a new index over documentIDs and stores
// it there.
func (ix *Indexer) EnsureAggregate(ctx context.Context, target *indexcache.Cache, key, combinedHash, name string, documentIDs []string) (indexcache.Record, error) {
	logger := contextutil.LoggerFromContext(ctx)

	unlock := ix.lock(key)
	defer unlock()

	if rec, ok := target.Lookup(ctx, key); ok && rec.ContentHash == combinedHash {
		logger.DebugContext(ctx, "aggregate index cache hit", "key", key, "index_id", rec.IndexID)
		return rec, nil
	}
	if len(documentIDs) == 0 {
		return indexcache.Record{}, fmt.Errorf("aggregate %q has no documents", key)
	}

	logger.InfoContext(ctx, "building aggregate index", "key", key, "documents", len(documentIDs))

	indexID, err := ix.backend.CreateIndex(ctx, indexName(name))
	if err != nil {
		return indexcache.Record{}, fmt.Errorf("failed to create aggregate index: %w", err)
	}
	if err := ix.backend.AttachDocuments(ctx, indexID, documentIDs); err != nil {
		return indexcache.Record{}, fmt.Errorf("failed to attach aggregate documents: %w", err)
	}
	if err := ix.await(ctx, indexID); err != nil {
		return indexcache.Record{}, err
	}

	rec := indexcache.Record{ContentHash: combinedHash, IndexID: indexID}
	ix.store(ctx, target, key, rec)

	logger.InfoContext(ctx, "aggregate index ready", "key", key, "index_id", indexID)
	return rec, nil
}

// await waits for an index to settle. A timeout is tolerated; a failed
// index is not.
func (ix *Indexer) await(ctx context.Context, indexID string) error {
	state, err := ix.waiter.Wait(ctx, indexID, ix.timeout)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexID, err)
	}
	if state == llm.IndexFailed {
		return fmt.Errorf("%w: %s", ErrIndexFailed, indexID)
	}
	return nil
}

// store writes rec through to target. Failures are logged, not returned.
func (ix *Indexer) store(ctx context.Context, target *indexcache.Cache, key string, rec indexcache.Record) {
	if err := target.Put(ctx, key, rec); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to persist index record", "key", key, "error", err)
	}
}

func indexName(name string) string {
	return fmt.Sprintf("madison-%s-%s", name, uuid.NewString())
}
