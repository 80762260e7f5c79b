package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks madison-ai/internal/vectorstore VectorStore

import "context"

// Payload keys written with every chunk point.
const (
	PayloadDocumentID  = "document_id"
	PayloadFilename    = "filename"
	PayloadChunkIndex  = "chunk_index"
	PayloadHeadingPath = "heading_path"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter restricts a search. The zero value matches every point.
type Filter struct {
	// DocumentIDs limits results to points whose document_id is one of these.
	DocumentIDs []string
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search restricted by filter.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// DeleteDocuments removes every point whose document_id is one of
	// documentIDs. An empty list deletes nothing.
	DeleteDocuments(ctx context.Context, collection string, documentIDs []string) error
}
