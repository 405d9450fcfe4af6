package mqtt

import (
	"encoding/json"

	"github.com/bluetracehq/bluetrace/internal/extraction"
)

// publisher is the subset of Client the announcer needs; tests substitute fakes.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface the announcer accepts.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Announcer publishes scan lifecycle events over MQTT.
//
// Lifecycle events go to the shared scan events topic; recorded artifacts
// are additionally published retained on a per-device topic, so a
// subscriber joining mid-operation immediately sees the latest artifact
// for every device.
//
// Publishing is advisory: failures are logged and swallowed so a flaky
// broker can never fail a scan.
type Announcer struct {
	pub    publisher
	qos    byte
	logger Logger
}

// NewAnnouncer creates an announcer publishing through the given client.
func NewAnnouncer(client *Client, qos byte, logger Logger) *Announcer {
	return &Announcer{pub: client, qos: qos, logger: logger}
}

// Announce publishes one scan event.
func (a *Announcer) Announce(event extraction.ScanEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn("encoding scan event for MQTT", "type", event.Type, "error", err)
		return
	}

	if err := a.pub.Publish(Topics{}.ScanEvents(), payload, a.qos, false); err != nil {
		a.logger.Warn("publishing scan event", "type", event.Type, "error", err)
	}

	if event.Type == extraction.EventArtifactRecorded && event.Artifact != nil {
		if err := a.pub.Publish(Topics{}.Artifact(event.Artifact.DeviceID), payload, a.qos, true); err != nil {
			a.logger.Warn("publishing artifact announcement", "device_id", event.Artifact.DeviceID, "error", err)
		}
	}
}
