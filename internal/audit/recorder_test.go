package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/extraction"
)

// fakeRepo captures created entries without a database.
type fakeRepo struct {
	entries   []Entry
	createErr error
}

func (f *fakeRepo) Create(_ context.Context, entry *Entry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{Entries: f.entries, Total: len(f.entries)}, nil
}

type nopLogger struct {
	warnings int
}

func (l *nopLogger) Warn(string, ...any) { l.warnings++ }

func TestRecorder_Announce(t *testing.T) {
	art := &artifact.Artifact{
		ID:       "ext-aaaa1111",
		DeviceID: "AA:BB:CC:DD:EE:FF",
		Hash:     "deadbeef",
	}

	tests := []struct {
		name        string
		event       extraction.ScanEvent
		wantAction  string
		wantSubject string
		wantNone    bool
	}{
		{
			name: "scan started",
			event: extraction.ScanEvent{
				Type:       extraction.EventScanStarted,
				Handle:     "scan-aaaa1111",
				OperatorID: "usr-1",
				Mode:       artifact.ModeIsolated,
			},
			wantAction:  ActionScanStarted,
			wantSubject: "scan-aaaa1111",
		},
		{
			name: "scan completed",
			event: extraction.ScanEvent{
				Type:       extraction.EventScanCompleted,
				Handle:     "scan-aaaa1111",
				OperatorID: "usr-1",
				Count:      3,
			},
			wantAction:  ActionScanCompleted,
			wantSubject: "scan-aaaa1111",
		},
		{
			name: "scan cancelled",
			event: extraction.ScanEvent{
				Type:       extraction.EventScanCompleted,
				Handle:     "scan-aaaa1111",
				OperatorID: "usr-1",
				Error:      extraction.ErrScanCancelled.Error(),
			},
			wantAction:  ActionScanCancelled,
			wantSubject: "scan-aaaa1111",
		},
		{
			name: "artifact recorded",
			event: extraction.ScanEvent{
				Type:       extraction.EventArtifactRecorded,
				Handle:     "scan-aaaa1111",
				OperatorID: "usr-1",
				Artifact:   art,
			},
			wantAction:  ActionArtifactRecorded,
			wantSubject: "ext-aaaa1111",
		},
		{
			name: "artifact reused",
			event: extraction.ScanEvent{
				Type:       extraction.EventArtifactRecorded,
				Handle:     "scan-aaaa1111",
				OperatorID: "usr-2",
				Artifact:   art,
				Reused:     true,
			},
			wantAction:  ActionArtifactReused,
			wantSubject: "ext-aaaa1111",
		},
		{
			name:     "unknown event type ignored",
			event:    extraction.ScanEvent{Type: "something_else"},
			wantNone: true,
		},
		{
			name:     "artifact event without artifact ignored",
			event:    extraction.ScanEvent{Type: extraction.EventArtifactRecorded},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			rec := NewRecorder(repo, &nopLogger{})

			rec.Announce(tt.event)

			if tt.wantNone {
				if len(repo.entries) != 0 {
					t.Fatalf("recorded %d entries, want none", len(repo.entries))
				}
				return
			}
			if len(repo.entries) != 1 {
				t.Fatalf("recorded %d entries, want 1", len(repo.entries))
			}
			got := repo.entries[0]
			if got.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", got.Action, tt.wantAction)
			}
			if got.SubjectID != tt.wantSubject {
				t.Errorf("subject_id = %q, want %q", got.SubjectID, tt.wantSubject)
			}
			if got.OperatorID != tt.event.OperatorID {
				t.Errorf("operator_id = %q, want %q", got.OperatorID, tt.event.OperatorID)
			}
		})
	}
}

func TestRecorder_WriteFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("disk full")}
	logger := &nopLogger{}
	rec := NewRecorder(repo, logger)

	rec.Announce(extraction.ScanEvent{
		Type:       extraction.EventScanStarted,
		Handle:     "scan-aaaa1111",
		OperatorID: "usr-1",
	})

	if logger.warnings != 1 {
		t.Errorf("warnings = %d, want 1", logger.warnings)
	}
}
