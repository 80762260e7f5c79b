package storage

import (
	"context"
	"encoding/json"
	"testing"
)

func TestEventRepo_Append(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepo(db)

	tests := []struct {
		name    string
		event   *EventRecord
		wantErr bool
	}{
		{
			name:    "feedback",
			event:   &EventRecord{Kind: "feedback", Payload: json.RawMessage(`{"rating":5}`)},
			wantErr: false,
		},
		{
			name:    "explicit ID",
			event:   &EventRecord{ID: "evt-1", Kind: "onboarding", Payload: json.RawMessage(`{}`)},
			wantErr: false,
		},
		{
			name:    "invalid JSON",
			event:   &EventRecord{Kind: "feedback", Payload: json.RawMessage(`{"rating":`)},
			wantErr: true,
		},
		{
			name:    "empty payload",
			event:   &EventRecord{Kind: "feedback"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Append(context.Background(), tt.event)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Append() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Append() unexpected error: %v", err)
			}
			if tt.event.ID == "" {
				t.Error("Append() did not assign an ID")
			}
		})
	}
}

func TestEventRepo_ListByKind(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewEventRepo(db)

	for _, e := range []EventRecord{
		{ID: "a", Kind: "feedback", Payload: json.RawMessage(`{"n":1}`)},
		{ID: "b", Kind: "demographics", Payload: json.RawMessage(`{"occupation":"historian"}`)},
		{ID: "c", Kind: "feedback", Payload: json.RawMessage(`{"n":2}`)},
		{ID: "d", Kind: "feedback", Payload: json.RawMessage(`{"n":3}`)},
	} {
		if err := repo.Append(ctx, &e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	events, err := repo.ListByKind(ctx, "feedback", 2)
	if err != nil {
		t.Fatalf("ListByKind() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ListByKind() returned %d events, want 2", len(events))
	}
	// Same-second inserts fall back to insertion order
	if events[0].ID != "d" || events[1].ID != "c" {
		t.Errorf("ListByKind() order = [%s %s], want [d c]", events[0].ID, events[1].ID)
	}
	if string(events[0].Payload) != `{"n":3}` {
		t.Errorf("Payload = %s, want {\"n\":3}", events[0].Payload)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	none, err := repo.ListByKind(ctx, "unknown", 10)
	if err != nil {
		t.Fatalf("ListByKind(unknown) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListByKind(unknown) = %v, want empty", none)
	}
}
