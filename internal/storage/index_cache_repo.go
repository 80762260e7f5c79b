package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"madison-ai/internal/indexcache"
)

// IndexCacheRepo persists index cache records in SQLite.
// It implements indexcache.Store.
type IndexCacheRepo struct {
	db *sql.DB
	// mu serializes Update's read-modify-write against other writers in
	// this process.
	mu sync.Mutex
}

// NewIndexCacheRepo creates a new IndexCacheRepo.
func NewIndexCacheRepo(db *sql.DB) *IndexCacheRepo {
	return &IndexCacheRepo{db: db}
}

var _ indexcache.Store = (*IndexCacheRepo)(nil)

const upsertCacheRecord = `INSERT INTO index_cache (key, content_hash, index_id, document_id, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (key) DO UPDATE SET
	content_hash = excluded.content_hash, index_id = excluded.index_id,
	document_id = excluded.document_id, updated_at = CURRENT_TIMESTAMP`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the record for key.
func (r *IndexCacheRepo) Get(ctx context.Context, key string) (indexcache.Record, bool, error) {
	return getCacheRecord(ctx, r.db, key)
}

func getCacheRecord(ctx context.Context, q querier, key string) (indexcache.Record, bool, error) {
	var rec indexcache.Record
	err := q.QueryRowContext(ctx,
		"SELECT content_hash, index_id, document_id FROM index_cache WHERE key = ?",
		key,
	).Scan(&rec.ContentHash, &rec.IndexID, &rec.DocumentID)

	if err == sql.ErrNoRows {
		return indexcache.Record{}, false, nil
	}
	if err != nil {
		return indexcache.Record{}, false, fmt.Errorf("failed to query index cache: %w", err)
	}
	return rec, true, nil
}

// Put writes rec under key.
func (r *IndexCacheRepo) Put(ctx context.Context, key string, rec indexcache.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, upsertCacheRecord, key, rec.ContentHash, rec.IndexID, rec.DocumentID); err != nil {
		return fmt.Errorf("failed to upsert index cache record: %w", err)
	}
	return nil
}

// Update applies fn to key inside a transaction.
func (r *IndexCacheRepo) Update(ctx context.Context, key string, fn indexcache.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, found, err := getCacheRecord(ctx, tx, key)
	if err != nil {
		return err
	}
	next, write := fn(current, found)
	if !write {
		return nil
	}
	if _, err := tx.ExecContext(ctx, upsertCacheRecord, key, next.ContentHash, next.IndexID, next.DocumentID); err != nil {
		return fmt.Errorf("failed to upsert index cache record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index cache update: %w", err)
	}
	return nil
}

// Snapshot returns every record.
func (r *IndexCacheRepo) Snapshot(ctx context.Context) (map[string]indexcache.Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, content_hash, index_id, document_id FROM index_cache")
	if err != nil {
		return nil, fmt.Errorf("failed to query index cache: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make(map[string]indexcache.Record)
	for rows.Next() {
		var (
			key string
			rec indexcache.Record
		)
		if err := rows.Scan(&key, &rec.ContentHash, &rec.IndexID, &rec.DocumentID); err != nil {
			return nil, fmt.Errorf("failed to scan index cache record: %w", err)
		}
		records[key] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Close is a no-op: the database is owned by the caller.
func (r *IndexCacheRepo) Close() error {
	return nil
}
