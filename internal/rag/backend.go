package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backend.go -package=mocks madison-ai/internal/rag Backend
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks madison-ai/internal/rag Engine

import (
	"context"

	"madison-ai/internal/library"
	"madison-ai/internal/llm"
)

// Backend is the retrieval and completion service the pipeline drives.
// llm.Client implements it against an OpenAI-compatible API and
// localindex.Backend against Qdrant.
type Backend interface {
	// CreateIndex creates an empty index and returns its handle.
	CreateIndex(ctx context.Context, name string) (string, error)
	// UploadDocument stores a document's bytes and returns its document ID.
	UploadDocument(ctx context.Context, filename string, data []byte) (string, error)
	// AttachDocuments adds uploaded documents to an index.
	AttachDocuments(ctx context.Context, indexID string, documentIDs []string) error
	// IndexStatus reports how far an index has progressed.
	IndexStatus(ctx context.Context, indexID string) (llm.IndexState, error)
	// Query answers over the given indexes and returns cited passages.
	Query(ctx context.Context, req llm.QueryRequest) (llm.Completion, error)
	// Complete runs a plain chat completion.
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Documents is the document library: *library.Library satisfies it.
type Documents interface {
	Lookup(label string) (library.Document, error)
	Read(label string) ([]byte, error)
	Labels(ctx context.Context) ([]string, error)
}
