package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"madison-ai/internal/service"
	"madison-ai/internal/storage"
	storagemocks "madison-ai/internal/storage/mocks"
)

func TestEventService_Record(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockStore := storagemocks.NewMockEventStore(ctrl)
	svc := service.NewEventService(mockStore)

	appendOK := func(kind string) func() {
		return func() {
			mockStore.EXPECT().
				Append(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, event *storage.EventRecord) error {
					if event.Kind != kind {
						t.Errorf("Append() kind = %q, want %q", event.Kind, kind)
					}
					event.ID = "evt-1"
					return nil
				})
		}
	}

	tests := []struct {
		name      string
		kind      string
		payload   string
		mockSetup func()
		wantID    string
		wantField string
		wantErrIs error
		wantErr   bool
	}{
		{
			name:      "feedback",
			kind:      service.EventFeedback,
			payload:   `{"messageIndex":3,"rating":"up"}`,
			mockSetup: appendOK(service.EventFeedback),
			wantID:    "evt-1",
		},
		{
			name:      "onboarding",
			kind:      service.EventOnboarding,
			payload:   `{"consent":true}`,
			mockSetup: appendOK(service.EventOnboarding),
			wantID:    "evt-1",
		},
		{
			name:      "demographics",
			kind:      service.EventDemographics,
			payload:   `{"occupation":"student","ageRange":"18-24"}`,
			mockSetup: appendOK(service.EventDemographics),
			wantID:    "evt-1",
		},
		{
			name:      "demographics missing age range",
			kind:      service.EventDemographics,
			payload:   `{"occupation":"student"}`,
			mockSetup: func() {},
			wantField: "ageRange",
		},
		{
			name:      "demographics non-string occupation",
			kind:      service.EventDemographics,
			payload:   `{"occupation":7,"ageRange":"18-24"}`,
			mockSetup: func() {},
			wantField: "occupation",
		},
		{
			name:      "payload not an object",
			kind:      service.EventFeedback,
			payload:   `[1,2]`,
			mockSetup: func() {},
			wantField: "body",
		},
		{
			name:      "unknown kind",
			kind:      "clicks",
			payload:   `{}`,
			mockSetup: func() {},
			wantErrIs: service.ErrInvalidInput,
		},
		{
			name:    "store failure",
			kind:    service.EventFeedback,
			payload: `{}`,
			mockSetup: func() {
				mockStore.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			id, err := svc.Record(testContext(), tt.kind, json.RawMessage(tt.payload))

			switch {
			case tt.wantField != "":
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
					t.Errorf("Record() error = %v, want validation error on %s", err, tt.wantField)
				}
			case tt.wantErrIs != nil:
				if !errors.Is(err, tt.wantErrIs) {
					t.Errorf("Record() error = %v, want %v", err, tt.wantErrIs)
				}
			case tt.wantErr:
				if err == nil {
					t.Error("Record() expected error, got nil")
				}
			default:
				if err != nil {
					t.Fatalf("Record() unexpected error: %v", err)
				}
				if id != tt.wantID {
					t.Errorf("Record() id = %q, want %q", id, tt.wantID)
				}
			}
		})
	}
}
