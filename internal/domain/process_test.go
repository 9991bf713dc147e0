package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseProcessStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ProcessStatus
		wantErr bool
	}{
		{name: "valid uppercase", input: "COMPLETED", want: ProcessCompleted},
		{name: "valid lowercase with spaces", input: " sem_completed ", want: ProcessSemCompleted},
		{name: "invalid", input: "DONE", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseProcessStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseProcessStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseProcessStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseProcessStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProcessStatusIsActive(t *testing.T) {
	t.Parallel()

	active := map[ProcessStatus]bool{
		ProcessPending:      true,
		ProcessProcessing:   true,
		ProcessOnHold:       false,
		ProcessCompleted:    false,
		ProcessSemCompleted: false,
		ProcessFailed:       false,
	}

	for status, want := range active {
		if got := status.IsActive(); got != want {
			t.Fatalf("%s.IsActive() = %v, want %v", status, got, want)
		}
	}
}

func TestParseMatchStatusFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseMatchStatusFromString(" success ")
	if err != nil {
		t.Fatalf("ParseMatchStatusFromString() unexpected error = %v", err)
	}
	if got != MatchSuccess {
		t.Fatalf("ParseMatchStatusFromString() = %s, want %s", got, MatchSuccess)
	}

	_, err = ParseMatchStatusFromString("SETTLED")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseMatchStatusFromString() error = %v, want ErrValidation", err)
	}
}

func TestProcessValidate(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Process{
		OwnerID:   "owner-1",
		Status:    ProcessPending,
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
	}

	tests := []struct {
		name    string
		mutate  func(*Process)
		wantErr bool
	}{
		{
			name: "valid process",
			mutate: func(p *Process) {
				// keep base
			},
		},
		{
			name: "missing owner",
			mutate: func(p *Process) {
				p.OwnerID = ""
			},
			wantErr: true,
		},
		{
			name: "invalid status",
			mutate: func(p *Process) {
				p.Status = ProcessStatus("RUNNING")
			},
			wantErr: true,
		},
		{
			name: "inverted date range",
			mutate: func(p *Process) {
				p.EndDate = p.StartDate.AddDate(0, 0, -1)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			process := base
			tt.mutate(&process)

			err := process.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	base := Notification{
		Recipient: "user-1",
		Message:   "matching finished",
		Type:      NotificationSuccess,
	}

	tests := []struct {
		name    string
		mutate  func(*Notification)
		wantErr bool
	}{
		{
			name: "valid notification",
			mutate: func(n *Notification) {
				// keep base
			},
		},
		{
			name: "missing recipient",
			mutate: func(n *Notification) {
				n.Recipient = ""
			},
			wantErr: true,
		},
		{
			name: "missing message",
			mutate: func(n *Notification) {
				n.Message = ""
			},
			wantErr: true,
		},
		{
			name: "invalid type",
			mutate: func(n *Notification) {
				n.Type = NotificationType("FATAL")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			notification := base
			tt.mutate(&notification)

			err := notification.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestPayloadScanRoundTrip(t *testing.T) {
	t.Parallel()

	original := Payload{"message": "halfway", "timeout": float64(30)}
	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var scanned Payload
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if scanned["message"] != "halfway" || scanned["timeout"] != float64(30) {
		t.Fatalf("scanned = %v, want original content", scanned)
	}

	var fromNil Payload
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if fromNil != nil {
		t.Fatalf("Scan(nil) = %v, want nil payload", fromNil)
	}
}
