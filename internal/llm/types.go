package llm

import "fmt"

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	// If 0, the service default is used.
	Temperature float32
}

// IndexState is the readiness of a remote index.
type IndexState string

const (
	IndexBuilding  IndexState = "building"
	IndexIndexing  IndexState = "indexing"
	IndexCompleted IndexState = "completed"
	IndexFailed    IndexState = "failed"
)

// QueryRequest asks the service to answer over one or more indexes.
type QueryRequest struct {
	IndexIDs     []string
	Model        string
	Instructions string
	Messages     []Message
	Temperature  float32
}

// Citation is a passage the service reports having used.
type Citation struct {
	DocumentID string
	Filename   string
	Quote      string
}

// Completion is the answer to a QueryRequest.
type Completion struct {
	Text      string
	Citations []Citation
}

// APIError is a non-2xx response from the service. Body is kept verbatim so
// callers can surface the service's own message.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}
