package handlers

import (
	"net/http"

	"madison-ai/internal/library"
	"madison-ai/internal/service"
)

// DocumentsHandler lists the documents available for selection.
type DocumentsHandler struct {
	library service.LibraryService
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(library service.LibraryService) *DocumentsHandler {
	return &DocumentsHandler{library: library}
}

// DocumentsResponse is the catalog listing.
type DocumentsResponse struct {
	Documents []library.Document `json:"documents"`
}

// ServeHTTP handles GET /api/documents.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}

	docs, err := h.library.ListDocuments(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []library.Document{}
	}

	writeJSON(ctx, w, http.StatusOK, DocumentsResponse{Documents: docs})
}
