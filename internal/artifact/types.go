package artifact

import "time"

// Kind identifies the scan modality an artifact was captured by.
type Kind string

const (
	// KindBLE marks artifacts produced by Bluetooth Low Energy scans.
	KindBLE Kind = "ble"
)

// Status is the lifecycle state of an artifact.
type Status string

const (
	// StatusPending marks an artifact whose extraction has not concluded.
	// This is a transient state; it must never be the final state of an
	// artifact returned to a caller.
	StatusPending Status = "pending"

	// StatusCompleted marks an artifact whose device report carried no error.
	StatusCompleted Status = "completed"

	// StatusFailed marks an artifact whose device report carried an error,
	// or whose payload could not be written or hashed.
	StatusFailed Status = "failed"
)

// Mode is the capture context a scan ran under.
type Mode string

const (
	// ModeIsolated marks captures taken in a shielded environment.
	ModeIsolated Mode = "isolated"

	// ModeAmbient marks captures taken in an uncontrolled RF environment.
	ModeAmbient Mode = "ambient"
)

// IsValidMode returns true if the mode is a recognised capture context.
func IsValidMode(m Mode) bool {
	return m == ModeIsolated || m == ModeAmbient
}

// Metadata holds advertisement data captured alongside the raw payload.
type Metadata struct {
	// Name is the advertised device name, often empty for BLE.
	Name string `json:"name,omitempty"`

	// RSSI is the received signal strength in dBm at capture time.
	RSSI *int `json:"rssi,omitempty"`

	// Details is a free-form, platform-specific description of the peripheral.
	Details string `json:"details,omitempty"`

	// ManufacturerData maps company identifiers to hex-encoded vendor payloads.
	ManufacturerData map[string]string `json:"manufacturer_data,omitempty"`

	// UUIDs lists the advertised service UUIDs.
	UUIDs []string `json:"uuids"`
}

// Characteristic describes one GATT characteristic read during extraction.
type Characteristic struct {
	UUID        string   `json:"uuid"`
	Description string   `json:"description,omitempty"`
	Handle      int      `json:"handle,omitempty"`
	Properties  []string `json:"properties,omitempty"`

	// Value is the hex-encoded characteristic value, nil if unreadable.
	Value *string `json:"value"`
}

// Service describes one GATT service and its characteristics.
type Service struct {
	UUID            string           `json:"uuid"`
	Description     string           `json:"description,omitempty"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Artifact is the durable record of one discovered device.
//
// Identity is (Kind, DeviceID); the store enforces uniqueness on that pair.
// Hash is always the SHA-256 digest of exactly the bytes at PayloadPath.
type Artifact struct {
	// ID is the store-assigned record identifier.
	ID string `json:"id"`

	// Kind is the scan modality (fixed per scan type).
	Kind Kind `json:"kind"`

	// DeviceID is the scanner-assigned device identifier, typically a
	// hardware address. Unique within a Kind.
	DeviceID string `json:"device_id"`

	// OperatorID references the operator who ran the scan.
	OperatorID string `json:"operator_id"`

	// CapturedAt is when the artifact was created at ingestion.
	CapturedAt time.Time `json:"captured_at"`

	// Hash is the lowercase hex SHA-256 digest of the payload file.
	Hash string `json:"hash"`

	// PayloadPath is the storage location of the raw report payload.
	PayloadPath string `json:"payload_path"`

	// Status is derived from the device report: failed iff the report
	// carried an error, completed otherwise.
	Status Status `json:"status"`

	// Mode is the capture context the scan ran under.
	Mode Mode `json:"mode"`

	// Metadata holds the advertisement data seen at capture time.
	Metadata Metadata `json:"metadata"`

	// Services holds the GATT services extracted from the device.
	Services []Service `json:"services"`

	// Error is the report's error string, nil for clean captures.
	Error *string `json:"error"`
}
