package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"madison-ai/internal/library"
	"madison-ai/internal/service"
	"madison-ai/internal/service/mocks"
)

func TestDocumentsHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		method     string
		mockSetup  func(*mocks.MockLibraryService)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "lists documents",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().ListDocuments(gomock.Any()).Return([]library.Document{
					{Label: "Hobbes--Leviathan", Author: "Hobbes", Title: "Leviathan", Path: "/books/Hobbes--Leviathan.txt"},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"documents":[{"label":"Hobbes--Leviathan","author":"Hobbes","title":"Leviathan"}]}`,
		},
		{
			name:   "empty library",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().ListDocuments(gomock.Any()).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"documents":[]}`,
		},
		{
			name:   "scan failure",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().ListDocuments(gomock.Any()).Return(nil, errors.New("permission denied"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			mockSetup:  func(m *mocks.MockLibraryService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLibrary := mocks.NewMockLibraryService(ctrl)
			tt.mockSetup(mockLibrary)

			handler := NewDocumentsHandler(mockLibrary)
			req := httptest.NewRequest(tt.method, "/api/documents", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Errorf("ServeHTTP() body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

// withLabel routes req as if chi matched /documents/{label}.
func withLabel(req *http.Request, label string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("label", label)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestDocumentPageHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name        string
		label       string
		mockSetup   func(*mocks.MockLibraryService)
		wantStatus  int
		wantContain []string
		wantMissing []string
	}{
		{
			name:  "markdown rendered",
			label: "Madison--Federalist_10",
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().GetDocument(gomock.Any(), "Madison--Federalist_10").Return(
					library.Document{Label: "Madison--Federalist_10", Author: "Madison", Title: "Federalist 10", Path: "/books/Madison--Federalist_10.md"},
					[]byte("# Faction\n\nThe **latent** causes."),
					nil,
				)
			},
			wantStatus:  http.StatusOK,
			wantContain: []string{"<h1>Federalist 10</h1>", "<strong>latent</strong>", `id="faction"`},
		},
		{
			name:  "plain text escaped",
			label: "Hobbes--Leviathan",
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().GetDocument(gomock.Any(), "Hobbes--Leviathan").Return(
					library.Document{Label: "Hobbes--Leviathan", Path: "/books/Hobbes--Leviathan.txt"},
					[]byte("war of <all> against all"),
					nil,
				)
			},
			wantStatus:  http.StatusOK,
			wantContain: []string{"<pre>war of &lt;all&gt; against all</pre>", "<h1>Hobbes--Leviathan</h1>"},
			wantMissing: []string{"<all>"},
		},
		{
			name:  "unknown label",
			label: "missing",
			mockSetup: func(m *mocks.MockLibraryService) {
				m.EXPECT().GetDocument(gomock.Any(), "missing").
					Return(library.Document{}, nil, fmt.Errorf("%w: document %q", service.ErrNotFound, "missing"))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "empty label",
			label:      " ",
			mockSetup:  func(m *mocks.MockLibraryService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLibrary := mocks.NewMockLibraryService(ctrl)
			tt.mockSetup(mockLibrary)

			handler := NewDocumentPageHandler(mockLibrary)
			req := withLabel(httptest.NewRequest(http.MethodGet, "/documents/x", nil), tt.label)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			body := w.Body.String()
			for _, want := range tt.wantContain {
				if !strings.Contains(body, want) {
					t.Errorf("ServeHTTP() body missing %q", want)
				}
			}
			for _, unwanted := range tt.wantMissing {
				if strings.Contains(body, unwanted) {
					t.Errorf("ServeHTTP() body contains %q", unwanted)
				}
			}
		})
	}
}
