package rag_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"madison-ai/internal/indexcache"
	"madison-ai/internal/library"
	"madison-ai/internal/llm"
	"madison-ai/internal/rag"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClock advances instantly whenever a caller waits on it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// fakeBackend records every call. Upload IDs are derived from the file name
// so tests can predict them.
type fakeBackend struct {
	mu        sync.Mutex
	indexes   int
	created   []string
	uploads   []string
	attached  map[string][]string
	queries   []llm.QueryRequest
	completes [][]llm.Message

	state      llm.IndexState
	completion llm.Completion
	complete   func(messages []llm.Message, params llm.ChatParams) (string, error)
	queryErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{attached: make(map[string][]string), state: llm.IndexCompleted}
}

func (f *fakeBackend) CreateIndex(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes++
	f.created = append(f.created, name)
	return fmt.Sprintf("vs_%d", f.indexes), nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, filename string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filename)
	return fileID(filename), nil
}

func (f *fakeBackend) AttachDocuments(_ context.Context, indexID string, documentIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[indexID] = append([]string(nil), documentIDs...)
	return nil
}

func (f *fakeBackend) IndexStatus(context.Context, string) (llm.IndexState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeBackend) Query(_ context.Context, req llm.QueryRequest) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	if f.queryErr != nil {
		return llm.Completion{}, f.queryErr
	}
	return f.completion, nil
}

func (f *fakeBackend) Complete(_ context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	f.mu.Lock()
	f.completes = append(f.completes, messages)
	complete := f.complete
	f.mu.Unlock()
	if complete == nil {
		return "", nil
	}
	return complete(messages, params)
}

func (f *fakeBackend) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeBackend) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func fileID(filename string) string {
	return "file-" + filename
}

// pipeline wires the real library, cache, indexer and aggregator around a
// fake backend.
type pipeline struct {
	dir        string
	lib        *library.Library
	cache      *indexcache.Cache
	backend    *fakeBackend
	indexer    *rag.Indexer
	aggregator *rag.Aggregator
	dispatcher *rag.Dispatcher
}

func newPipeline(t *testing.T, files map[string]string, policy rag.AggregatePolicy) *pipeline {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeDoc(t, dir, name, content)
	}

	lib := library.New(dir, nil)
	cache := indexcache.New(indexcache.NewFileStore(filepath.Join(t.TempDir(), ".vector_cache.json")), lib)
	pairs := indexcache.New(indexcache.NewMemoryStore(), lib)
	backend := newFakeBackend()
	waiter := rag.NewWaiter(backend, time.Second, newFakeClock())
	indexer := rag.NewIndexer(backend, lib, cache, waiter, 10*time.Second)

	return &pipeline{
		dir:        dir,
		lib:        lib,
		cache:      cache,
		backend:    backend,
		indexer:    indexer,
		aggregator: rag.NewAggregator(indexer, lib, cache, pairs, policy),
		dispatcher: rag.NewDispatcher(backend, lib, waiter, 10*time.Second, nil, "extract-model"),
	}
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

var library4 = map[string]string{
	"Hobbes--Leviathan.txt":         "The life of man, solitary, poor, nasty, brutish, and short.",
	"Locke--Second_Treatise.txt":    "Every man has a property in his own person.",
	"Mill--On_Liberty.txt":          "Over himself, over his own body and mind, the individual is sovereign.",
	"Rousseau--Social_Contract.txt": "Man is born free, and everywhere he is in chains.",
}
