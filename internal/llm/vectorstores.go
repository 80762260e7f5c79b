package llm

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

type vectorStoreRequest struct {
	Name string `json:"name"`
}

type objectResponse struct {
	ID string `json:"id"`
}

type fileBatchRequest struct {
	FileIDs []string `json:"file_ids"`
}

// FileCounts summarizes the processing state of a vector store's files.
type FileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

type vectorStoreResponse struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	FileCounts FileCounts `json:"file_counts"`
}

// CreateIndex creates an empty vector store and returns its ID.
func (c *Client) CreateIndex(ctx context.Context, name string) (string, error) {
	var resp objectResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/vector_stores", vectorStoreRequest{Name: name}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("vector store created without an id")
	}
	return resp.ID, nil
}

// UploadDocument uploads data as a retrieval file and returns the file ID.
func (c *Client) UploadDocument(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp objectResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("file uploaded without an id")
	}
	return resp.ID, nil
}

// AttachDocuments adds uploaded files to a vector store in one batch.
func (c *Client) AttachDocuments(ctx context.Context, indexID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return fmt.Errorf("no documents to attach")
	}
	path := fmt.Sprintf("/v1/vector_stores/%s/file_batches", url.PathEscape(indexID))
	return c.doJSON(ctx, http.MethodPost, path, fileBatchRequest{FileIDs: documentIDs}, nil)
}

// IndexStatus reports the readiness of a vector store from its file counts.
func (c *Client) IndexStatus(ctx context.Context, indexID string) (IndexState, error) {
	var resp vectorStoreResponse
	path := "/v1/vector_stores/" + url.PathEscape(indexID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Status == "expired" {
		return IndexFailed, nil
	}
	return stateFromCounts(resp.FileCounts), nil
}

func stateFromCounts(counts FileCounts) IndexState {
	switch {
	case counts.Total == 0:
		return IndexBuilding
	case counts.Completed == counts.Total:
		return IndexCompleted
	case counts.InProgress == 0 && counts.Failed+counts.Cancelled > 0:
		return IndexFailed
	default:
		return IndexIndexing
	}
}
