package llm

import (
	"context"
	"net/http"
	"strings"
)

type fileSearchTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids"`
}

type responsesRequest struct {
	Model        string           `json:"model"`
	Instructions string           `json:"instructions,omitempty"`
	Input        []Message        `json:"input"`
	Tools        []fileSearchTool `json:"tools,omitempty"`
	Include      []string         `json:"include,omitempty"`
	Temperature  float32          `json:"temperature,omitempty"`
}

type responsesAnnotation struct {
	Type     string `json:"type"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Quote    string `json:"quote"`
}

type responsesContent struct {
	Type        string                `json:"type"`
	Text        string                `json:"text"`
	Annotations []responsesAnnotation `json:"annotations"`
}

type fileSearchResult struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
	Results []fileSearchResult `json:"results"`
}

type responsesResponse struct {
	ID     string            `json:"id"`
	Output []responsesOutput `json:"output"`
}

// Query answers the request's messages with file search over req.IndexIDs.
// With no index IDs it runs as a plain response without retrieval.
func (c *Client) Query(ctx context.Context, req QueryRequest) (Completion, error) {
	model := req.Model
	if model == "" {
		model = c.Model
	}

	payload := responsesRequest{
		Model:        model,
		Instructions: req.Instructions,
		Input:        req.Messages,
		Temperature:  req.Temperature,
	}
	if len(req.IndexIDs) > 0 {
		payload.Tools = []fileSearchTool{{Type: "file_search", VectorStoreIDs: req.IndexIDs}}
		payload.Include = []string{"file_search_call.results"}
	}

	var resp responsesResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/responses", payload, &resp); err != nil {
		return Completion{}, err
	}
	return completionFromOutput(resp.Output), nil
}

// completionFromOutput joins the assistant's output text and collects
// citations: retrieved passages first, then annotations that carry a quote.
func completionFromOutput(output []responsesOutput) Completion {
	var (
		text      strings.Builder
		citations []Citation
		quoted    []Citation
	)
	for _, item := range output {
		switch item.Type {
		case "file_search_call":
			for _, r := range item.Results {
				if r.Text == "" {
					continue
				}
				citations = append(citations, Citation{DocumentID: r.FileID, Filename: r.Filename, Quote: r.Text})
			}
		case "message":
			for _, content := range item.Content {
				if content.Type != "output_text" {
					continue
				}
				text.WriteString(content.Text)
				for _, a := range content.Annotations {
					if a.Type == "file_citation" && a.Quote != "" {
						quoted = append(quoted, Citation{DocumentID: a.FileID, Filename: a.Filename, Quote: a.Quote})
					}
				}
			}
		}
	}
	return Completion{
		Text:      strings.TrimSpace(text.String()),
		Citations: append(citations, quoted...),
	}
}
