package rag_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"madison-ai/internal/library"
	"madison-ai/internal/llm"
	"madison-ai/internal/rag"
	"madison-ai/internal/rag/mocks"

	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"
)

func newMockDispatcher(t *testing.T, backend rag.Backend, files map[string]string) *rag.Dispatcher {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeDoc(t, dir, name, content)
	}
	lib := library.New(dir, nil)
	waiter := rag.NewWaiter(backend, time.Second, newFakeClock())
	return rag.NewDispatcher(backend, lib, waiter, 5*time.Second, rate.NewLimiter(rate.Inf, 1), "extract-model")
}

func TestDispatcher_Indexed(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, nil)

	q := rag.Question{
		Text:         "What is property?",
		Conversation: []llm.Message{{Role: "user", Content: "Hi"}, {Role: "assistant", Content: "Hello"}},
		Model:        "gpt-test",
	}

	backend.EXPECT().IndexStatus(gomock.Any(), "vs_1").Return(llm.IndexCompleted, nil).Times(1)
	backend.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.QueryRequest) (llm.Completion, error) {
			if len(req.IndexIDs) != 1 || req.IndexIDs[0] != "vs_1" {
				t.Errorf("IndexIDs = %v, want [vs_1]", req.IndexIDs)
			}
			if req.Model != "gpt-test" {
				t.Errorf("Model = %q, want gpt-test", req.Model)
			}
			if len(req.Messages) != 3 || req.Messages[2].Content != "What is property?" || req.Messages[2].Role != "user" {
				t.Errorf("Messages = %+v, want conversation then question", req.Messages)
			}
			if !strings.Contains(req.Instructions, `"quotes"`) {
				t.Error("instructions do not ask for quotes")
			}
			if req.Temperature != 0.2 {
				t.Errorf("Temperature = %v, want 0.2", req.Temperature)
			}
			return llm.Completion{Text: "answer"}, nil
		}).Times(2)

	for range 2 {
		got, err := d.Indexed(context.Background(), []string{"vs_1"}, q)
		if err != nil {
			t.Fatalf("Indexed() error = %v", err)
		}
		if got.Text != "answer" {
			t.Errorf("Text = %q, want answer", got.Text)
		}
	}
}

func TestDispatcher_Indexed_NotReadyIsBestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, nil)

	backend.EXPECT().IndexStatus(gomock.Any(), "vs_1").Return(llm.IndexIndexing, nil).AnyTimes()
	backend.EXPECT().Query(gomock.Any(), gomock.Any()).Return(llm.Completion{Text: "partial"}, nil)

	got, err := d.Indexed(context.Background(), []string{"vs_1"}, rag.Question{Text: "q"})
	if err != nil {
		t.Fatalf("Indexed() error = %v", err)
	}
	if got.Text != "partial" {
		t.Errorf("Text = %q, want partial", got.Text)
	}
}

func TestDispatcher_Indexed_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, nil)

	apiErr := &llm.APIError{StatusCode: 429, Body: `{"error":"rate limited"}`}
	backend.EXPECT().IndexStatus(gomock.Any(), "vs_1").Return(llm.IndexCompleted, nil)
	backend.EXPECT().Query(gomock.Any(), gomock.Any()).Return(llm.Completion{}, apiErr).Times(1)

	_, err := d.Indexed(context.Background(), []string{"vs_1"}, rag.Question{Text: "q"})
	var got *llm.APIError
	if !errors.As(err, &got) || got.Body != `{"error":"rate limited"}` {
		t.Errorf("Indexed() error = %v, want wrapped APIError", err)
	}
}

func TestDispatcher_Unscoped(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, nil)

	backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
			if messages[0].Role != "system" {
				t.Errorf("first message role = %q, want system", messages[0].Role)
			}
			if last := messages[len(messages)-1]; last.Content != "Hello?" {
				t.Errorf("last message = %+v, want the question", last)
			}
			return "  General answer.  ", nil
		})

	got, err := d.Unscoped(context.Background(), rag.Question{Text: "Hello?"})
	if err != nil {
		t.Fatalf("Unscoped() error = %v", err)
	}
	if got.Text != "General answer." || len(got.Citations) != 0 {
		t.Errorf("Unscoped() = %+v", got)
	}
}

func TestDispatcher_Extract(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, library4)

	var extractCalls atomic.Int32
	backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
			user := messages[1].Content
			switch {
			case params.Model == "extract-model":
				extractCalls.Add(1)
				if strings.Contains(user, "Title: Leviathan") {
					return "No relevant text found", nil
				}
				if strings.Contains(user, "Title: Second Treatise") {
					return `"Every man has a property in his own person." (Chapter V)`, nil
				}
				return `"Man is born free." (Book I)`, nil
			default:
				if !strings.Contains(user, "Context:") {
					t.Errorf("synthesis prompt missing context: %q", user)
				}
				locke := strings.Index(user, "'Second Treatise' by Locke")
				rousseau := strings.Index(user, "'Social Contract' by Rousseau")
				if locke < 0 || rousseau < 0 || locke > rousseau {
					t.Errorf("excerpts not in selection order: %q", user)
				}
				return "Synthesized.", nil
			}
		}).Times(4)

	labels := []string{locke, hobbes, rousseau, "Nobody--Nothing"}
	got, err := d.Extract(context.Background(), labels, rag.Question{Text: "What about freedom?"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if extractCalls.Load() != 3 {
		t.Errorf("extract calls = %d, want 3 (missing document skipped)", extractCalls.Load())
	}
	if got.Completion.Text != "Synthesized." {
		t.Errorf("Text = %q", got.Completion.Text)
	}
	if len(got.Excerpts) != 2 {
		t.Fatalf("Excerpts = %d, want 2", len(got.Excerpts))
	}
	if !strings.HasPrefix(got.Excerpts[0], "----- Relevant excerpts from 'Second Treatise' by Locke -----\n") {
		t.Errorf("first excerpt = %q", got.Excerpts[0])
	}
}

func TestDispatcher_Extract_NothingRelevantSkipsSynthesis(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, library4)

	backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("No relevant text found.", nil).Times(2)

	got, err := d.Extract(context.Background(), []string{locke, hobbes}, rag.Question{Text: "Recipes?"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Completion.Text != "" || len(got.Excerpts) != 0 {
		t.Errorf("Extract() = %+v, want empty", got)
	}
}

func TestDispatcher_Extract_ServiceErrorFailsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	d := newMockDispatcher(t, backend, library4)

	apiErr := &llm.APIError{StatusCode: 500, Body: "boom"}
	backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", apiErr).MinTimes(1).MaxTimes(2)

	_, err := d.Extract(context.Background(), []string{locke, hobbes}, rag.Question{Text: "q"})
	var got *llm.APIError
	if !errors.As(err, &got) {
		t.Errorf("Extract() error = %v, want APIError", err)
	}
}
