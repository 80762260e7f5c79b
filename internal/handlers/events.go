package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/service"
)

// EventHandler appends UI events of one kind to the event log.
type EventHandler struct {
	events service.EventService
	kind   string
}

// NewEventHandler creates a new EventHandler recording events of kind.
func NewEventHandler(events service.EventService, kind string) *EventHandler {
	return &EventHandler{events: events, kind: kind}
}

// EventResponse acknowledges a recorded event.
type EventResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// ServeHTTP records the request body as an event.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to read event body", "kind", h.kind, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.events.Record(ctx, h.kind, json.RawMessage(body))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to record event")
		return
	}

	writeJSON(ctx, w, http.StatusOK, EventResponse{OK: true, ID: id})
}
