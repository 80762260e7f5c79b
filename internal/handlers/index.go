package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/service"
)

// IndexHandler handles HTTP requests for prewarming document indexes.
type IndexHandler struct {
	library service.LibraryService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(library service.LibraryService) *IndexHandler {
	return &IndexHandler{
		library: library,
	}
}

// IndexRequest optionally limits prewarming to some labels.
type IndexRequest struct {
	Labels []string `json:"labels"`
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles HTTP requests for prewarming.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	var req IndexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	aggregate := r.URL.Query().Get("aggregate") == "true"
	logger.InfoContext(ctx, "prewarm triggered via API", "labels", len(req.Labels), "aggregate", aggregate)

	// Detach from the request so prewarming outlives the response while
	// keeping the request logger
	prewarmCtx := context.WithoutCancel(ctx)
	go func() {
		report, err := h.library.Prewarm(prewarmCtx, req.Labels, aggregate)
		if err != nil {
			logger.ErrorContext(prewarmCtx, "prewarm completed with errors", "error", err)
			return
		}
		logger.InfoContext(prewarmCtx, "prewarm completed",
			"built", len(report.Built),
			"skipped", len(report.Skipped),
			"missing", len(report.Missing),
		)
	}()

	message := "Indexing started. Check server logs for progress."
	if aggregate {
		message = "Indexing started, including the all-documents index. Check server logs for progress."
	}
	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: message,
		Status:  "accepted",
	})
}
