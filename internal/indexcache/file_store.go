package indexcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"madison-ai/internal/contextutil"
)

// FileStore keeps the cache as a single JSON object on disk, keyed by label.
// The file is re-read on every operation so that a prewarm run in another
// process is picked up, and every write replaces the file atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the JSON file at path. The file need
// not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the record for key.
func (s *FileStore) Get(ctx context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	rec, ok := records[key]
	return rec, ok, nil
}

// Put writes rec under key.
func (s *FileStore) Put(ctx context.Context, key string, rec Record) error {
	return s.Update(ctx, key, func(Record, bool) (Record, bool) {
		return rec, true
	})
}

// Update serializes read-modify-write cycles through the store mutex.
func (s *FileStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	current, found := records[key]
	next, write := fn(current, found)
	if !write {
		return nil
	}
	records[key] = next
	return s.save(records)
}

// Snapshot returns a copy of every record in the file.
func (s *FileStore) Snapshot(ctx context.Context) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

// Close is a no-op; the file is not held open between operations.
func (s *FileStore) Close() error {
	return nil
}

// load reads the cache file. A missing or unreadable file yields an empty
// cache, which only costs a rebuild.
func (s *FileStore) load(ctx context.Context) map[string]Record {
	logger := contextutil.LoggerFromContext(ctx)
	records := make(map[string]Record)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "failed to read index cache, starting empty", "path", s.path, "error", err)
		}
		return records
	}
	if len(data) == 0 {
		return records
	}
	if err := json.Unmarshal(data, &records); err != nil {
		logger.WarnContext(ctx, "index cache is corrupt, starting empty", "path", s.path, "error", err)
		return make(map[string]Record)
	}
	return records
}

func (s *FileStore) save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write index cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace index cache: %w", err)
	}
	return nil
}
