package extraction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PayloadStore persists raw device payloads to the extraction directory.
// Payload files are written before hashing so the recorded digest always
// covers the bytes on disk, not an in-memory copy that may differ.
type PayloadStore struct {
	dir string
}

// NewPayloadStore creates the extraction directory if needed and returns a
// store rooted at it.
func NewPayloadStore(dir string) (*PayloadStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("extraction: payload directory not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}
	return &PayloadStore{dir: dir}, nil
}

// Write persists data as a new payload file for deviceID and returns the
// file's path. Filenames embed the device identifier and a nanosecond
// timestamp so concurrent writes for the same device never collide on
// disk; the artifact store arbitrates which record wins.
func (s *PayloadStore) Write(deviceID string, data []byte) (string, error) {
	name := fmt.Sprintf("ble_data_%s_%d.json", sanitiseDeviceID(deviceID), time.Now().UnixNano())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("writing payload file: %w", err)
	}
	return path, nil
}

// Discard removes a payload file whose record lost an insert race. Best
// effort: the file is orphaned, not authoritative, so failures are ignored.
func (s *PayloadStore) Discard(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// sanitiseDeviceID maps a BLE address to a filesystem-safe fragment.
// Addresses are typically colon-separated hex pairs.
func sanitiseDeviceID(deviceID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, deviceID)
}
