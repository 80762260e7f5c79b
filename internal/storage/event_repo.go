package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_event_store.go -package=mocks madison-ai/internal/storage EventStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventStore defines the interface for the append-only event log.
type EventStore interface {
	// Append stores an event. ID is generated when empty.
	Append(ctx context.Context, event *EventRecord) error
	// ListByKind returns the most recent events of a kind, newest first.
	ListByKind(ctx context.Context, kind string, limit int) ([]EventRecord, error)
}

// EventRepo provides methods for event operations.
// It implements the EventStore interface.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append stores an event.
func (r *EventRepo) Append(ctx context.Context, event *EventRecord) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if !json.Valid(event.Payload) {
		return fmt.Errorf("event payload is not valid JSON")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO events (id, kind, payload) VALUES (?, ?, ?)",
		event.ID, event.Kind, string(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListByKind returns up to limit events of kind, newest first.
func (r *EventRepo) ListByKind(ctx context.Context, kind string, limit int) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, kind, payload, created_at FROM events WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []EventRecord
	for rows.Next() {
		var (
			event     EventRecord
			payload   string
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.Kind, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Payload = json.RawMessage(payload)
		event.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}
