package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Retrieval backends.
const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// Dispatch modes.
const (
	DispatchIndexed = "indexed"
	DispatchExtract = "extract"
)

// Aggregate policies for selections of three or more documents.
const (
	AggregateAll        = "all"
	AggregateSelection  = "selection"
	AggregateIndividual = "individual"
)

// Index cache backends.
const (
	CacheJSON   = "json"
	CacheSQLite = "sqlite"
	CacheBolt   = "bolt"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	ExtractModelName   string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	RetrievalBackend   string
	DispatchMode       string
	AggregatePolicy    string
	PromotePairIndexes bool

	BooksDir    string
	CatalogPath string
	WatchBooks  bool

	CacheBackend string
	CachePath    string
	DBPath       string

	IndexPollInterval  time.Duration
	IndexWaitTimeout   time.Duration
	PrewarmWaitTimeout time.Duration

	ExtractRateLimit float64
	ExtractBurst     int

	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
	// AllowedOrigins lists the browser origins allowed by CORS. Empty
	// allows any origin.
	AllowedOrigins []string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "https://api.openai.com")
	llmModelName := getEnv("LLM_MODEL", "gpt-4o-mini")

	cfg := &Config{
		LLMBaseURL:         llmBaseURL,
		LLMModelName:       llmModelName,
		ExtractModelName:   getEnv("EXTRACT_MODEL", llmModelName),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"), // Checked per request, not at startup
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", llmBaseURL),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		RetrievalBackend:   strings.ToLower(getEnv("RETRIEVAL_BACKEND", BackendOpenAI)),
		DispatchMode:       strings.ToLower(getEnv("DISPATCH_MODE", DispatchIndexed)),
		AggregatePolicy:    strings.ToLower(getEnv("AGGREGATE_POLICY", AggregateAll)),
		BooksDir:           getEnv("BOOKS_DIR", "./books"),
		CatalogPath:        getEnv("CATALOG_PATH", ""),
		CacheBackend:       strings.ToLower(getEnv("INDEX_CACHE_BACKEND", CacheJSON)),
		CachePath:          getEnv("INDEX_CACHE_PATH", "./data/.vector_cache.json"),
		DBPath:             getEnv("DB_PATH", "./data/madison.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "books"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		AllowedOrigins:     splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if err := oneOf("RETRIEVAL_BACKEND", cfg.RetrievalBackend, BackendOpenAI, BackendLocal); err != nil {
		return nil, err
	}
	if err := oneOf("DISPATCH_MODE", cfg.DispatchMode, DispatchIndexed, DispatchExtract); err != nil {
		return nil, err
	}
	if err := oneOf("AGGREGATE_POLICY", cfg.AggregatePolicy, AggregateAll, AggregateSelection, AggregateIndividual); err != nil {
		return nil, err
	}
	if err := oneOf("INDEX_CACHE_BACKEND", cfg.CacheBackend, CacheJSON, CacheSQLite, CacheBolt); err != nil {
		return nil, err
	}
	if err := oneOf("LOG_FORMAT", cfg.LogFormat, "text", "json"); err != nil {
		return nil, err
	}

	if cfg.PromotePairIndexes, err = parseBool("PROMOTE_PAIR_INDEXES", false); err != nil {
		return nil, err
	}
	if cfg.WatchBooks, err = parseBool("WATCH_BOOKS", false); err != nil {
		return nil, err
	}

	if cfg.IndexPollInterval, err = parseDuration("INDEX_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.IndexWaitTimeout, err = parseDuration("INDEX_WAIT_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.PrewarmWaitTimeout, err = parseDuration("PREWARM_WAIT_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}

	rateStr := getEnv("EXTRACT_RATE_LIMIT", "4")
	cfg.ExtractRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.ExtractRateLimit <= 0 {
		return nil, fmt.Errorf("EXTRACT_RATE_LIMIT must be a positive number")
	}
	burstStr := getEnv("EXTRACT_BURST", "4")
	cfg.ExtractBurst, err = strconv.Atoi(burstStr)
	if err != nil || cfg.ExtractBurst <= 0 {
		return nil, fmt.Errorf("EXTRACT_BURST must be a positive integer")
	}

	// The vector size must match the output of the embeddings model, and only the
	// local backend talks to Qdrant at all.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr != "" {
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		if vectorSize <= 0 {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
		}
		cfg.QdrantVectorSize = vectorSize
	}
	if cfg.RetrievalBackend == BackendLocal && cfg.QdrantVectorSize == 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required for the local backend")
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	for _, dir := range []string{filepath.Dir(cfg.DBPath), filepath.Dir(cfg.CachePath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// HasCredentials reports whether an API key for the completion service is configured.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func parseBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return d, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}
	return level, nil
}
