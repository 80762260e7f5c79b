// Package localindex is a self-hosted retrieval backend: documents are
// chunked, embedded and stored in Qdrant, and indexes are membership sets in
// SQLite. Answers come from a chat completion over the retrieved chunks.
package localindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/llm"
	"madison-ai/internal/storage"
	"madison-ai/internal/vectorstore"
)

const (
	defaultTopK         = 8
	candidateMultiplier = 3
	embedBatchSize      = 32
)

// Embedder generates embedding vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedInBatches(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// Completer answers chat conversations.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Backend implements the retrieval backend capability surface on local
// infrastructure.
type Backend struct {
	indexes    storage.IndexStore
	documents  storage.DocumentStore
	chunks     storage.ChunkStore
	embedder   Embedder
	completer  Completer
	vectors    vectorstore.VectorStore
	collection string
	chunker    *Chunker
	topK       int
}

// NewBackend creates a new Backend storing vectors in collection.
func NewBackend(
	indexes storage.IndexStore,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder Embedder,
	completer Completer,
	vectors vectorstore.VectorStore,
	collection string,
) *Backend {
	return &Backend{
		indexes:    indexes,
		documents:  documents,
		chunks:     chunks,
		embedder:   embedder,
		completer:  completer,
		vectors:    vectors,
		collection: collection,
		chunker:    NewChunker(),
		topK:       defaultTopK,
	}
}

// CreateIndex creates an empty index in the building state.
func (b *Backend) CreateIndex(ctx context.Context, name string) (string, error) {
	index, err := b.indexes.Create(ctx, name, string(llm.IndexBuilding))
	if err != nil {
		return "", err
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "created local index", "index_id", index.ID, "name", name)
	return index.ID, nil
}

// UploadDocument chunks, embeds and stores a document, returning its ID.
// Uploading bytes that were uploaded before returns the existing document.
func (b *Backend) UploadDocument(ctx context.Context, filename string, data []byte) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := b.documents.GetByHash(ctx, hash)
	if err == nil {
		logger.DebugContext(ctx, "reusing uploaded document", "filename", filename, "document_id", existing.ID)
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing document: %w", err)
	}

	chunks := b.chunker.Split(filename, data)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		embeddings, err = b.embedder.EmbedInBatches(ctx, texts, embedBatchSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return "", fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
		}
	}

	doc := &storage.LocalDocument{Filename: filename, ContentHash: hash}
	if err := b.documents.Create(ctx, doc); err != nil {
		return "", err
	}

	if err := b.storeChunks(ctx, doc, chunks, embeddings); err != nil {
		// Remove the half-written document so a retry re-uploads it
		if delErr := b.vectors.DeleteDocuments(ctx, b.collection, []string{doc.ID}); delErr != nil {
			logger.WarnContext(ctx, "failed to remove partially upserted vectors", "document_id", doc.ID, "error", delErr)
		}
		if delErr := b.documents.Delete(ctx, doc.ID); delErr != nil {
			logger.WarnContext(ctx, "failed to remove partially uploaded document", "document_id", doc.ID, "error", delErr)
		}
		return "", err
	}

	logger.InfoContext(ctx, "uploaded document", "filename", filename, "document_id", doc.ID, "chunks", len(chunks))
	return doc.ID, nil
}

func (b *Backend) storeChunks(ctx context.Context, doc *storage.LocalDocument, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		records[i] = storage.ChunkRecord{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			ChunkIndex:  chunk.Index,
			HeadingPath: chunk.HeadingPath,
			Text:        chunk.Text,
		}
		points[i] = vectorstore.Point{
			ID:  records[i].ID,
			Vec: embeddings[i],
			Meta: map[string]any{
				vectorstore.PayloadDocumentID:  doc.ID,
				vectorstore.PayloadFilename:    doc.Filename,
				vectorstore.PayloadChunkIndex:  chunk.Index,
				vectorstore.PayloadHeadingPath: chunk.HeadingPath,
			},
		}
	}

	if err := b.chunks.InsertBatch(ctx, records); err != nil {
		return err
	}
	if err := b.vectors.Upsert(ctx, b.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}

// AttachDocuments adds documents to an index. Local indexes are searchable
// as soon as their membership is written, so the index completes here.
func (b *Backend) AttachDocuments(ctx context.Context, indexID string, documentIDs []string) error {
	if err := b.indexes.SetStatus(ctx, indexID, string(llm.IndexIndexing)); err != nil {
		return fmt.Errorf("failed to mark index %s indexing: %w", indexID, err)
	}

	if err := b.indexes.AddDocuments(ctx, indexID, documentIDs); err != nil {
		if statusErr := b.indexes.SetStatus(ctx, indexID, string(llm.IndexFailed)); statusErr != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to mark index failed", "index_id", indexID, "error", statusErr)
		}
		return err
	}

	return b.indexes.SetStatus(ctx, indexID, string(llm.IndexCompleted))
}

// IndexStatus reports an index's readiness.
func (b *Backend) IndexStatus(ctx context.Context, indexID string) (llm.IndexState, error) {
	index, err := b.indexes.GetByID(ctx, indexID)
	if err != nil {
		return "", fmt.Errorf("failed to get index %s: %w", indexID, err)
	}
	return llm.IndexState(index.Status), nil
}

// Complete answers a conversation without retrieval.
func (b *Backend) Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	return b.completer.Complete(ctx, messages, params)
}

// Query retrieves the chunks closest to the latest user message from the
// request's indexes and answers over them. The retrieved chunks are
// returned as citations.
func (b *Backend) Query(ctx context.Context, req llm.QueryRequest) (llm.Completion, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := lastUserMessage(req.Messages)
	if question == "" {
		return llm.Completion{}, fmt.Errorf("query has no user message")
	}

	documentIDs, err := b.documentIDs(ctx, req.IndexIDs)
	if err != nil {
		return llm.Completion{}, err
	}

	var passages []passage
	if len(documentIDs) > 0 {
		passages, err = b.retrieve(ctx, question, documentIDs)
		if err != nil {
			return llm.Completion{}, err
		}
	}
	if len(passages) == 0 {
		logger.WarnContext(ctx, "no passages retrieved", "indexes", len(req.IndexIDs), "documents", len(documentIDs))
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt(req.Instructions, passages)})
	messages = append(messages, req.Messages...)

	text, err := b.completer.Complete(ctx, messages, llm.ChatParams{Model: req.Model, Temperature: req.Temperature})
	if err != nil {
		return llm.Completion{}, err
	}

	citations := make([]llm.Citation, len(passages))
	for i, p := range passages {
		citations[i] = llm.Citation{DocumentID: p.documentID, Filename: p.filename, Quote: p.text}
	}
	return llm.Completion{Text: text, Citations: citations}, nil
}

// documentIDs returns the union of the indexes' members, in index order.
func (b *Backend) documentIDs(ctx context.Context, indexIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, indexID := range indexIDs {
		members, err := b.indexes.ListDocumentIDs(ctx, indexID)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents of index %s: %w", indexID, err)
		}
		for _, id := range members {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (b *Backend) retrieve(ctx context.Context, question string, documentIDs []string) ([]passage, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vectors, err := b.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 question embedding, got %d", len(vectors))
	}

	hits, err := b.vectors.Search(ctx, b.collection, vectors[0], b.topK*candidateMultiplier,
		vectorstore.Filter{DocumentIDs: documentIDs})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.PointID
	}
	chunks, err := b.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	passages := make([]passage, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := chunks[hit.PointID]
		if !ok {
			logger.WarnContext(ctx, "vector point has no chunk record", "point_id", hit.PointID)
			continue
		}
		filename, _ := hit.Meta[vectorstore.PayloadFilename].(string)
		passages = append(passages, passage{
			chunkID:     chunk.ID,
			documentID:  chunk.DocumentID,
			filename:    filename,
			headingPath: chunk.HeadingPath,
			text:        chunk.Text,
			score:       hit.Score,
		})
	}

	return rerank(question, passages, b.topK), nil
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// systemPrompt appends the retrieved passages to the caller's instructions.
func systemPrompt(instructions string, passages []passage) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(instructions))
	sb.WriteString("\n\nRetrieved passages:\n")
	if len(passages) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&sb, "\n[%d] %s", i+1, p.filename)
		if p.headingPath != "" {
			fmt.Fprintf(&sb, " (%s)", p.headingPath)
		}
		fmt.Fprintf(&sb, "\n%s\n", p.text)
	}
	return sb.String()
}
