package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madison-ai/internal/config"
)

func testConfig(t *testing.T, cacheBackend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	books := filepath.Join(dir, "books")
	require.NoError(t, os.MkdirAll(books, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(books, "Hobbes--Leviathan.txt"), []byte("Leviathan"), 0o644))

	return &config.Config{
		LLMBaseURL:         "http://127.0.0.1:0",
		LLMModelName:       "gpt-test",
		ExtractModelName:   "gpt-test",
		RetrievalBackend:   config.BackendOpenAI,
		DispatchMode:       config.DispatchIndexed,
		AggregatePolicy:    config.AggregateAll,
		BooksDir:           books,
		CacheBackend:       cacheBackend,
		CachePath:          filepath.Join(dir, "cache"),
		DBPath:             filepath.Join(dir, "madison.db"),
		IndexPollInterval:  time.Millisecond,
		IndexWaitTimeout:   time.Second,
		PrewarmWaitTimeout: time.Second,
		ExtractRateLimit:   4,
		ExtractBurst:       4,
	}
}

func TestNew_CacheBackends(t *testing.T) {
	for _, backend := range []string{config.CacheJSON, config.CacheSQLite, config.CacheBolt} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			a, err := New(ctx, testConfig(t, backend))
			require.NoError(t, err)
			t.Cleanup(func() {
				assert.NoError(t, a.Close())
			})

			assert.NotNil(t, a.Engine)
			assert.NotNil(t, a.Prewarmer)
			assert.NotContains(t, a.HealthChecks, "vector_store")
			require.Contains(t, a.HealthChecks, "index_cache")
			assert.NoError(t, a.HealthChecks["index_cache"](ctx))

			labels, err := a.Library.Labels(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Hobbes--Leviathan"}, labels)
		})
	}
}

func TestNew_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t, config.CacheJSON)
	cfg.DBPath = "/nonexistent/dir/madison.db"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.CacheJSON))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
