package mqtt

import "fmt"

// Topic prefixes for BlueTrace MQTT topics.
const (
	// TopicPrefix is the base for all BlueTrace topics.
	TopicPrefix = "bluetrace"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "bluetrace/system"
)

// Topics provides builders for BlueTrace MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SystemStatus returns the retained service status topic.
//
// Example: bluetrace/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ScanEvents returns the topic for scan lifecycle events.
//
// Example: bluetrace/scans/events
func (Topics) ScanEvents() string {
	return TopicPrefix + "/scans/events"
}

// Artifact returns the retained announcement topic for one device's artifact.
//
// Example: bluetrace/artifacts/AA:BB:CC:DD:EE:FF
func (Topics) Artifact(deviceID string) string {
	return fmt.Sprintf("%s/artifacts/%s", TopicPrefix, deviceID)
}
