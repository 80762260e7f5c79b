package indexcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"madison-ai/internal/contextutil"
)

var bucketIndexCache = []byte("index_cache")

// BoltStore keeps cache records in a bbolt bucket. bbolt allows one writable
// transaction at a time, which serializes Update.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIndexCache)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the record for key. An undecodable value is treated as absent.
func (s *BoltStore) Get(ctx context.Context, key string) (Record, bool, error) {
	var (
		rec   Record
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, found = decodeBolt(ctx, key, tx.Bucket(bucketIndexCache).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read bolt cache: %w", err)
	}
	return rec, found, nil
}

// Put writes rec under key.
func (s *BoltStore) Put(ctx context.Context, key string, rec Record) error {
	return s.Update(ctx, key, func(Record, bool) (Record, bool) {
		return rec, true
	})
}

// Update runs fn inside a single read-write transaction.
func (s *BoltStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIndexCache)
		current, found := decodeBolt(ctx, key, b.Get([]byte(key)))
		next, write := fn(current, found)
		if !write {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write bolt cache: %w", err)
	}
	return nil
}

// Snapshot returns every record in the bucket.
func (s *BoltStore) Snapshot(ctx context.Context) (map[string]Record, error) {
	records := make(map[string]Record)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIndexCache).ForEach(func(k, v []byte) error {
			if rec, ok := decodeBolt(ctx, string(k), v); ok {
				records[string(k)] = rec
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read bolt cache: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeBolt(ctx context.Context, key string, data []byte) (Record, bool) {
	if data == nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "ignoring corrupt cache entry", "key", key, "error", err)
		return Record{}, false
	}
	return rec, true
}
