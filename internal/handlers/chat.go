package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"madison-ai/internal/citation"
	"madison-ai/internal/contextutil"
	"madison-ai/internal/llm"
	"madison-ai/internal/service"
)

// ChatHandler handles HTTP requests for questions over the library.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
//
// The chat UI sends its history as Messages and its selection as Context;
// both are accepted alongside Question and SelectedDocuments.
type ChatRequest struct {
	Question          string        `json:"question"`
	SelectedDocuments []string      `json:"selectedDocuments"`
	Model             string        `json:"model,omitempty"`
	Conversation      []llm.Message `json:"conversation,omitempty"`
	Messages          []llm.Message `json:"messages,omitempty"`
	Context           []string      `json:"context,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply   string            `json:"reply"`
	Sources []citation.Source `json:"sources,omitempty"`
	Context []string          `json:"context,omitempty"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Convert HTTP request to service request
	svcResp, err := h.chatService.ProcessChat(ctx, req.toService())
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ChatResponse{
		Reply:   svcResp.Reply,
		Sources: svcResp.Sources,
		Context: svcResp.Context,
	})
}

// toService resolves the UI aliases into a service request. Without an
// explicit question, the last user message is the question and the messages
// before it are the conversation.
func (req ChatRequest) toService() service.ChatRequest {
	svcReq := service.ChatRequest{
		Question:     req.Question,
		Documents:    req.SelectedDocuments,
		Model:        req.Model,
		Conversation: req.Conversation,
	}
	if len(svcReq.Documents) == 0 {
		svcReq.Documents = req.Context
	}

	if strings.TrimSpace(svcReq.Question) != "" || len(req.Messages) == 0 {
		return svcReq
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		svcReq.Question = req.Messages[i].Content
		if len(svcReq.Conversation) == 0 && i > 0 {
			svcReq.Conversation = req.Messages[:i]
		}
		break
	}
	return svcReq
}
