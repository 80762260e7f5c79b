package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService madison-ai/internal/service ChatService

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"madison-ai/internal/citation"
	"madison-ai/internal/contextutil"
	"madison-ai/internal/llm"
	"madison-ai/internal/rag"
)

// ChatRequest represents a question in the domain layer.
type ChatRequest struct {
	Question     string
	Documents    []string // selected labels, in selection order
	Model        string
	Conversation []llm.Message
}

// ChatResponse represents an answer in the domain layer.
type ChatResponse struct {
	Reply   string
	Sources []citation.Source
	Context []string
}

// ChatService answers questions over the document library.
type ChatService interface {
	// ProcessChat validates a question and answers it.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine rag.Engine
	apiKey string
}

// NewChatService creates a new ChatService. An empty apiKey makes every
// question fail with ErrConfiguration.
func NewChatService(engine rag.Engine, apiKey string) ChatService {
	return &chatService{
		engine: engine,
		apiKey: apiKey,
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if s.apiKey == "" {
		logger.ErrorContext(ctx, "LLM_API_KEY is not set")
		return ChatResponse{}, fmt.Errorf("%w: missing LLM_API_KEY", ErrConfiguration)
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		logger.WarnContext(ctx, "empty question in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "question",
			Message: "cannot be empty",
		}
	}

	for i, m := range req.Conversation {
		if m.Role != "user" && m.Role != "assistant" {
			return ChatResponse{}, &ValidationError{
				Field:   "conversation",
				Message: fmt.Sprintf("turn %d has unsupported role %q", i, m.Role),
			}
		}
	}

	resp, err := s.engine.Ask(ctx, rag.AskRequest{
		Question:     question,
		Documents:    selection(req.Documents),
		Model:        strings.TrimSpace(req.Model),
		Conversation: req.Conversation,
	})
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			logger.ErrorContext(ctx, "completion service rejected request", "status", apiErr.StatusCode, "error", err)
			return ChatResponse{}, fmt.Errorf("%w: %w", ErrExternalService, err)
		}
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		return ChatResponse{}, WrapError(err, "failed to answer question")
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"question_length", len(question),
		"reply_length", len(resp.Reply),
		"sources", len(resp.Sources),
	)
	return ChatResponse{
		Reply:   resp.Reply,
		Sources: resp.Sources,
		Context: resp.Context,
	}, nil
}

// selection trims labels and drops blanks and repeats, keeping first-seen order.
func selection(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
