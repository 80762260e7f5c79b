// Package indexcache remembers which remote index was built from which
// document content, so unchanged documents are never re-indexed.
package indexcache

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks madison-ai/internal/indexcache Store

import (
	"context"
	"strings"
)

// Reserved keys and key prefixes for aggregate indexes. Document labels never
// start with a double underscore.
const (
	AllDocumentsKey    = "__all_documents__"
	PairKeyPrefix      = "__pair__:"
	SelectionKeyPrefix = "__selection__:"
)

// Record is one cache entry. For per-document entries ContentHash is the
// SHA-256 of the document bytes; for aggregates it is the combined digest of
// the member hashes and DocumentID is empty.
type Record struct {
	ContentHash string `json:"contentHash"`
	IndexID     string `json:"indexId"`
	DocumentID  string `json:"documentId,omitempty"`
}

// UpdateFunc receives the current record (found reports whether one exists)
// and returns the record to store; returning write=false leaves the entry untouched.
type UpdateFunc func(current Record, found bool) (next Record, write bool)

// Store persists cache records.
type Store interface {
	// Get returns the record for key; found is false when there is none.
	Get(ctx context.Context, key string) (rec Record, found bool, err error)
	// Put writes rec under key, replacing any previous record.
	Put(ctx context.Context, key string, rec Record) error
	// Update performs a read-modify-write of key that is serialized against
	// every other write to the store.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Snapshot returns a copy of all records.
	Snapshot(ctx context.Context) (map[string]Record, error)
	// Close releases resources held by the store.
	Close() error
}

// IsReserved reports whether key names an aggregate entry rather than a document.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, "__")
}
