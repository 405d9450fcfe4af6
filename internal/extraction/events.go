package extraction

import "github.com/bluetracehq/bluetrace/internal/artifact"

// Scan event types published to announcers.
const (
	EventScanStarted      = "scan_started"
	EventArtifactRecorded = "artifact_recorded"
	EventScanCompleted    = "scan_completed"
)

// ScanEvent is a lifecycle notification emitted by the orchestrator.
// Events are advisory: delivery failures never affect the scan outcome.
type ScanEvent struct {
	Type       string             `json:"type"`
	Handle     string             `json:"handle"`
	OperatorID string             `json:"operator_id"`
	Mode       artifact.Mode      `json:"mode,omitempty"`
	Artifact   *artifact.Artifact `json:"artifact,omitempty"`
	Reused     bool               `json:"reused,omitempty"`
	Count      int                `json:"count,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Announcer receives scan lifecycle events. Implementations must not
// block; the orchestrator calls Announce inline on the scan path.
type Announcer interface {
	Announce(event ScanEvent)
}

// Announcers fans one event out to several announcers.
type Announcers []Announcer

// Announce delivers event to every announcer in order.
func (a Announcers) Announce(event ScanEvent) {
	for _, ann := range a {
		ann.Announce(event)
	}
}

// TelemetryWriter records per-device signal readings taken during a scan.
type TelemetryWriter interface {
	WriteSignalStrength(deviceID string, rssi int, mode string)
}
