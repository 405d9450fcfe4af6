package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/extraction"
)

type fakePublisher struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.published = append(f.published, publishedMessage{topic: topic, payload: payload, retained: retained})
	return f.err
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

func TestAnnouncer_Announce(t *testing.T) {
	t.Run("lifecycle event goes to the scan events topic", func(t *testing.T) {
		pub := &fakePublisher{}
		ann := &Announcer{pub: pub, qos: 1, logger: nopLogger{}}

		ann.Announce(extraction.ScanEvent{
			Type:       extraction.EventScanStarted,
			Handle:     "scan-ab12cd34",
			OperatorID: "usr-op1",
			Mode:       artifact.ModeAmbient,
		})

		if len(pub.published) != 1 {
			t.Fatalf("published %d messages, want 1", len(pub.published))
		}
		msg := pub.published[0]
		if msg.topic != "bluetrace/scans/events" {
			t.Errorf("topic = %q, want bluetrace/scans/events", msg.topic)
		}
		if msg.retained {
			t.Error("lifecycle event published retained")
		}

		var event extraction.ScanEvent
		if err := json.Unmarshal(msg.payload, &event); err != nil {
			t.Fatalf("payload is not a scan event: %v", err)
		}
		if event.Handle != "scan-ab12cd34" {
			t.Errorf("event handle = %q, want scan-ab12cd34", event.Handle)
		}
	})

	t.Run("recorded artifact also publishes retained per-device", func(t *testing.T) {
		pub := &fakePublisher{}
		ann := &Announcer{pub: pub, qos: 1, logger: nopLogger{}}

		ann.Announce(extraction.ScanEvent{
			Type:       extraction.EventArtifactRecorded,
			Handle:     "scan-ab12cd34",
			OperatorID: "usr-op1",
			Artifact: &artifact.Artifact{
				ID:       "ext-11223344",
				DeviceID: "AA:BB:CC:DD:EE:FF",
			},
		})

		if len(pub.published) != 2 {
			t.Fatalf("published %d messages, want 2", len(pub.published))
		}
		device := pub.published[1]
		if device.topic != "bluetrace/artifacts/AA:BB:CC:DD:EE:FF" {
			t.Errorf("device topic = %q, want bluetrace/artifacts/AA:BB:CC:DD:EE:FF", device.topic)
		}
		if !device.retained {
			t.Error("artifact announcement not retained")
		}
	})

	t.Run("publish failure is swallowed", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("broker gone")}
		ann := &Announcer{pub: pub, qos: 1, logger: nopLogger{}}

		// Must not panic or propagate.
		ann.Announce(extraction.ScanEvent{Type: extraction.EventScanCompleted, Handle: "scan-x"})
	})
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.SystemStatus(); got != "bluetrace/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
	if got := topics.ScanEvents(); got != "bluetrace/scans/events" {
		t.Errorf("ScanEvents() = %q", got)
	}
	if got := topics.Artifact("AA:BB"); got != "bluetrace/artifacts/AA:BB" {
		t.Errorf("Artifact() = %q", got)
	}
}
