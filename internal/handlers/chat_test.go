package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"madison-ai/internal/citation"
	"madison-ai/internal/llm"
	"madison-ai/internal/service"
	"madison-ai/internal/service/mocks"
)

func TestNewChatHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChatService := mocks.NewMockChatService(ctrl)
	handler := NewChatHandler(mockChatService)

	if handler == nil {
		t.Fatal("NewChatHandler() returned nil")
	}
	if handler.chatService != mockChatService {
		t.Error("NewChatHandler() chatService not set correctly")
	}
}

func TestChatHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	question := service.ChatRequest{
		Question:  "What is property?",
		Documents: []string{"Locke--Second_Treatise"},
	}

	tests := []struct {
		name          string
		method        string
		body          interface{}
		mockSetup     func(*mocks.MockChatService)
		wantStatus    int
		checkResponse func(*httptest.ResponseRecorder) bool
	}{
		{
			name:   "successful POST request",
			method: http.MethodPost,
			body: ChatRequest{
				Question:          "What is property?",
				SelectedDocuments: []string{"Locke--Second_Treatise"},
			},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), question).
					Return(service.ChatResponse{
						Reply: "Labour mixed with nature.",
						Sources: []citation.Source{{
							Document:   "Locke--Second_Treatise",
							DocumentID: "file-1",
							Quote:      "every man has a property in his own person",
						}},
					}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp ChatResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.Reply == "Labour mixed with nature." &&
					len(resp.Sources) == 1 &&
					resp.Sources[0].Document == "Locke--Second_Treatise"
			},
		},
		{
			name:   "no sources omits the field",
			method: http.MethodPost,
			body: ChatRequest{
				Question: "Hello",
			},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), service.ChatRequest{Question: "Hello"}).
					Return(service.ChatResponse{Reply: "Hi there!"}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var raw map[string]json.RawMessage
				if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
					return false
				}
				_, hasSources := raw["sources"]
				return !hasSources && string(raw["reply"]) == `"Hi there!"`
			},
		},
		{
			name:   "UI message shape",
			method: http.MethodPost,
			body: ChatRequest{
				Messages: []llm.Message{
					{Role: "user", Content: "Who wrote it?"},
					{Role: "assistant", Content: "Locke."},
					{Role: "user", Content: "What is property?"},
				},
				Context: []string{"Locke--Second_Treatise"},
			},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), service.ChatRequest{
						Question:  "What is property?",
						Documents: []string{"Locke--Second_Treatise"},
						Conversation: []llm.Message{
							{Role: "user", Content: "Who wrote it?"},
							{Role: "assistant", Content: "Locke."},
						},
					}).
					Return(service.ChatResponse{Reply: "ok"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "method not allowed",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockChatService) {
				// No calls expected
			},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "invalid JSON body",
			method: http.MethodPost,
			body:   "invalid json",
			mockSetup: func(m *mocks.MockChatService) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			method: http.MethodPost,
			body:   ChatRequest{},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), service.ChatRequest{}).
					Return(service.ChatResponse{}, &service.ValidationError{
						Field:   "question",
						Message: "cannot be empty",
					})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "missing credential",
			method: http.MethodPost,
			body:   ChatRequest{Question: "Hello"},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, fmt.Errorf("%w: missing LLM_API_KEY", service.ErrConfiguration))
			},
			wantStatus: http.StatusInternalServerError,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.Error == "Missing LLM_API_KEY"
			},
		},
		{
			name:   "service error",
			method: http.MethodPost,
			body:   ChatRequest{Question: "Hello"},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, errors.New("service error"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "ErrExternalService passes the service message through",
			method: http.MethodPost,
			body:   ChatRequest{Question: "Hello"},
			mockSetup: func(m *mocks.MockChatService) {
				apiErr := &llm.APIError{StatusCode: http.StatusTooManyRequests, Body: "rate limit exceeded"}
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, fmt.Errorf("%w: %w", service.ErrExternalService, apiErr))
			},
			wantStatus: http.StatusBadGateway,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.Error == "rate limit exceeded"
			},
		},
		{
			name:   "ErrExternalService without a body",
			method: http.MethodPost,
			body:   ChatRequest{Question: "Hello"},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, service.ErrExternalService)
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockChatService := mocks.NewMockChatService(ctrl)
			tt.mockSetup(mockChatService)

			handler := NewChatHandler(mockChatService)

			var bodyBytes []byte
			if s, ok := tt.body.(string); ok {
				// For invalid JSON test case
				bodyBytes = []byte(s)
			} else if tt.body != nil {
				var err error
				bodyBytes, err = json.Marshal(tt.body)
				if err != nil {
					t.Fatalf("marshal body: %v", err)
				}
			}

			req := httptest.NewRequest(tt.method, "/api/chat", bytes.NewBuffer(bodyBytes))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if tt.checkResponse != nil && !tt.checkResponse(w) {
				t.Error("ServeHTTP() response validation failed")
			}
		})
	}
}

func TestChatRequest_toService(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
		want service.ChatRequest
	}{
		{
			name: "explicit question wins over messages",
			req: ChatRequest{
				Question: "Q",
				Messages: []llm.Message{{Role: "user", Content: "ignored"}},
			},
			want: service.ChatRequest{Question: "Q"},
		},
		{
			name: "selectedDocuments wins over context",
			req: ChatRequest{
				Question:          "Q",
				SelectedDocuments: []string{"a"},
				Context:           []string{"b"},
			},
			want: service.ChatRequest{Question: "Q", Documents: []string{"a"}},
		},
		{
			name: "single message has no conversation",
			req: ChatRequest{
				Messages: []llm.Message{{Role: "user", Content: "Q"}},
			},
			want: service.ChatRequest{Question: "Q"},
		},
		{
			name: "trailing assistant message is skipped",
			req: ChatRequest{
				Messages: []llm.Message{
					{Role: "user", Content: "Q"},
					{Role: "assistant", Content: "A"},
				},
			},
			want: service.ChatRequest{Question: "Q"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.toService()
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(tt.want)
			if !bytes.Equal(gotJSON, wantJSON) {
				t.Errorf("toService() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, http.StatusBadRequest, "test error")

	if w.Code != http.StatusBadRequest {
		t.Errorf("writeError() status = %v, want %v", w.Code, http.StatusBadRequest)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("writeError() invalid JSON: %v", err)
	}

	if resp.Error != "test error" {
		t.Errorf("writeError() error = %v, want test error", resp.Error)
	}
}
