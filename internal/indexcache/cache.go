package indexcache

import (
	"context"
	"fmt"
	"sort"

	"madison-ai/internal/contextutil"
)

// Source supplies the current bytes of a document.
type Source interface {
	Read(label string) ([]byte, error)
}

// Cache decides whether a document's index is still valid. Document hashes
// are always recomputed from the source; nothing about the content is trusted
// from earlier calls.
type Cache struct {
	store  Store
	source Source
}

// New returns a cache over store, hashing documents read from source.
func New(store Store, source Source) *Cache {
	return &Cache{store: store, source: source}
}

// CurrentHash re-reads the document and returns its content hash.
func (c *Cache) CurrentHash(label string) (string, error) {
	data, err := c.source.Read(label)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}

// Lookup returns the record for key. Store failures are logged and treated
// as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (Record, bool) {
	rec, found, err := c.store.Get(ctx, key)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "index cache lookup failed, treating as miss", "key", key, "error", err)
		return Record{}, false
	}
	if found && rec.IndexID == "" {
		return Record{}, false
	}
	return rec, found
}

// Fresh reports whether label has a cached index built from its current
// content. The current hash is returned either way.
func (c *Cache) Fresh(ctx context.Context, label string) (rec Record, hash string, fresh bool, err error) {
	hash, err = c.CurrentHash(label)
	if err != nil {
		return Record{}, "", false, err
	}
	rec, found := c.Lookup(ctx, label)
	return rec, hash, found && rec.ContentHash == hash, nil
}

// Put writes rec under key.
func (c *Cache) Put(ctx context.Context, key string, rec Record) error {
	if err := c.store.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("failed to write index cache: %w", err)
	}
	return nil
}

// Update applies fn to key atomically with respect to other writers.
func (c *Cache) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := c.store.Update(ctx, key, fn); err != nil {
		return fmt.Errorf("failed to update index cache: %w", err)
	}
	return nil
}

// Snapshot returns all records. Store failures yield an empty map.
func (c *Cache) Snapshot(ctx context.Context) map[string]Record {
	records, err := c.store.Snapshot(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "index cache snapshot failed", "error", err)
		return map[string]Record{}
	}
	return records
}

// LabelForDocument finds the label whose cached record holds documentID.
// Identical files share one uploaded document; the lowest such label wins.
func (c *Cache) LabelForDocument(ctx context.Context, documentID string) (string, bool) {
	if documentID == "" {
		return "", false
	}
	var matches []string
	for key, rec := range c.Snapshot(ctx) {
		if !IsReserved(key) && rec.DocumentID == documentID {
			matches = append(matches, key)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// Ping verifies the store can be read.
func (c *Cache) Ping(ctx context.Context) error {
	_, err := c.store.Snapshot(ctx)
	return err
}
