package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"
)

// embedConcurrency bounds in-flight batch requests in EmbedInBatches.
const embedConcurrency = 4

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API. It is
// only used by the self-hosted retrieval backend to embed document chunks and
// questions.
type EmbeddingsClient struct {
	*Client
	ExpectedSize int // Must match the Qdrant collection's vector size
}

// NewEmbeddingsClient creates a new embeddings client. Every vector returned
// is validated against expectedSize.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		Client:       NewClient(baseURL, apiKey, model),
		ExpectedSize: expectedSize,
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts returns one vector per text, in input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	var resp EmbeddingsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/embeddings", EmbeddingsRequest{Model: c.Model, Input: texts}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API may answer out of order; index says which input each vector is for
	sort.SliceStable(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}

// EmbedInBatches embeds texts in groups of at most batchSize, preserving
// order. Batches are sent concurrently; the first failure cancels the rest.
func (c *EmbeddingsClient) EmbedInBatches(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	result := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vectors, err := c.EmbedTexts(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
			}
			copy(result[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
