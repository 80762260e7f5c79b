package storage

import (
	"encoding/json"
	"time"
)

// EventRecord is one appended UI event (feedback, onboarding, demographics).
type EventRecord struct {
	ID        string          // UUID
	Kind      string          // "feedback", "onboarding", "demographics"
	Payload   json.RawMessage // Request body as received
	CreatedAt time.Time
}

// LocalIndex is a named set of documents searched together by the local
// retrieval backend.
type LocalIndex struct {
	ID        string // UUID, handed out as the index handle
	Name      string
	Status    string // llm.IndexState value
	CreatedAt time.Time
}

// LocalDocument is an uploaded document in the local retrieval backend.
type LocalDocument struct {
	ID          string // UUID, handed out as the document ID
	Filename    string
	ContentHash string // SHA256 hex string of the uploaded bytes
	CreatedAt   time.Time
}

// ChunkRecord represents a chunk of text from a document, indexed for vector search.
type ChunkRecord struct {
	ID          string // UUID (same as Qdrant point ID)
	DocumentID  string // UUID (foreign key to local_documents.id)
	ChunkIndex  int    // Index within document (starts at 0)
	HeadingPath string // Format: "# Heading1 > ## Heading2"
	Text        string // Chunk text content
}
