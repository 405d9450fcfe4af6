package audit

import (
	"context"
	"time"

	"github.com/bluetracehq/bluetrace/internal/extraction"
)

// recordTimeout bounds a single journal write. Custody recording is
// advisory on the scan path; a stuck database must not stall a scan.
const recordTimeout = 5 * time.Second

// Logger is the logging surface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder appends scan lifecycle events to the custody journal. It
// implements the orchestrator's announcer interface; write failures are
// logged and swallowed so the journal never affects scan outcomes.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a custody recorder over the given repository.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Announce converts a scan event into a custody entry and appends it.
func (r *Recorder) Announce(event extraction.ScanEvent) {
	entry := entryFromEvent(event)
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("custody journal write failed",
			"action", entry.Action,
			"subject_id", entry.SubjectID,
			"error", err,
		)
	}
}

// entryFromEvent maps a scan event to its custody entry, or nil for
// event types the journal does not record.
func entryFromEvent(event extraction.ScanEvent) *Entry {
	switch event.Type {
	case extraction.EventScanStarted:
		return &Entry{
			Action:      ActionScanStarted,
			SubjectType: SubjectScan,
			SubjectID:   event.Handle,
			OperatorID:  event.OperatorID,
			Source:      "orchestrator",
			Details:     map[string]any{"mode": string(event.Mode)},
		}
	case extraction.EventScanCompleted:
		action := ActionScanCompleted
		details := map[string]any{"count": event.Count}
		if event.Error != "" {
			details["error"] = event.Error
			if event.Error == extraction.ErrScanCancelled.Error() {
				action = ActionScanCancelled
			}
		}
		return &Entry{
			Action:      action,
			SubjectType: SubjectScan,
			SubjectID:   event.Handle,
			OperatorID:  event.OperatorID,
			Source:      "orchestrator",
			Details:     details,
		}
	case extraction.EventArtifactRecorded:
		if event.Artifact == nil {
			return nil
		}
		action := ActionArtifactRecorded
		if event.Reused {
			action = ActionArtifactReused
		}
		return &Entry{
			Action:      action,
			SubjectType: SubjectArtifact,
			SubjectID:   event.Artifact.ID,
			OperatorID:  event.OperatorID,
			Source:      "orchestrator",
			Details: map[string]any{
				"device_id": event.Artifact.DeviceID,
				"hash":      event.Artifact.Hash,
			},
		}
	default:
		return nil
	}
}
