package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_event_service.go -package=mocks -mock_names=EventService=MockEventService madison-ai/internal/service EventService

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/storage"
)

// Event kinds accepted by EventService.
const (
	EventFeedback     = "feedback"
	EventOnboarding   = "onboarding"
	EventDemographics = "demographics"
)

// EventService records UI events in the append-only event log.
type EventService interface {
	// Record validates payload for kind and appends it. Returns the event ID.
	Record(ctx context.Context, kind string, payload json.RawMessage) (string, error)
}

type eventService struct {
	store storage.EventStore
}

// NewEventService creates a new EventService.
func NewEventService(store storage.EventStore) EventService {
	return &eventService{store: store}
}

// Record appends one event.
func (s *eventService) Record(ctx context.Context, kind string, payload json.RawMessage) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch kind {
	case EventFeedback, EventOnboarding, EventDemographics:
	default:
		return "", fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, kind)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return "", &ValidationError{Field: "body", Message: "must be a JSON object"}
	}

	if kind == EventDemographics {
		for _, field := range []string{"occupation", "ageRange"} {
			value, ok := fields[field].(string)
			if !ok || strings.TrimSpace(value) == "" {
				return "", &ValidationError{Field: field, Message: "must be a non-empty string"}
			}
		}
	}

	event := &storage.EventRecord{Kind: kind, Payload: payload}
	if err := s.store.Append(ctx, event); err != nil {
		logger.ErrorContext(ctx, "failed to append event", "kind", kind, "error", err)
		return "", WrapError(err, "failed to record event")
	}

	logger.InfoContext(ctx, "event recorded", "kind", kind, "id", event.ID)
	return event.ID, nil
}
