// Package scanner provides the client for the external wireless scanner
// microservice.
//
// The scanner is an opaque collaborator reached over HTTP: BlueTrace sends
// a scan request carrying the capture mode and a timeout, and receives a
// list of device reports. This package owns the wire format and the
// bounded-wait behaviour; it performs no persistence.
//
// The single blocking wait in a scan invocation happens here, so the
// request deadline is the caller's timeout plus a fixed margin for local
// I/O. The client never blocks indefinitely on a misbehaving scanner.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// scanPath is the scanner microservice endpoint for BLE scans.
const scanPath = "/ble/scan"

// healthPath is the scanner microservice liveness endpoint.
const healthPath = "/health"

// maxResponseSize bounds the scanner response body (8 MB). A scan of a
// crowded environment with full GATT dumps stays well under this.
const maxResponseSize = 8 << 20

// DeviceReport is one discovered device as reported by the scanner.
//
// Reports are ephemeral: the orchestrator converts each into a durable
// extraction artifact, and the raw report JSON becomes the artifact payload.
type DeviceReport struct {
	// Address is the scanner-assigned device identifier (hardware address).
	Address string `json:"address"`

	// Name is the advertised device name, often empty for BLE.
	Name string `json:"name,omitempty"`

	// RSSI is the received signal strength in dBm, nil when not reported.
	RSSI *int `json:"rssi"`

	// Details is a free-form, platform-specific peripheral description.
	Details string `json:"details,omitempty"`

	// Metadata carries advertisement data keyed by source.
	Metadata ReportMetadata `json:"metadata"`

	// Services lists GATT services extracted from the device.
	Services []ServiceReport `json:"services,omitempty"`

	// Error is non-empty when extraction of this device failed partway.
	Error string `json:"error,omitempty"`
}

// ReportMetadata carries the advertisement data of one report.
type ReportMetadata struct {
	// UUIDs lists advertised service UUIDs.
	UUIDs []string `json:"uuids"`

	// ManufacturerData maps company identifiers to hex-encoded payloads.
	ManufacturerData map[string]string `json:"manufacturer_data"`
}

// ServiceReport describes one GATT service in a device report.
type ServiceReport struct {
	UUID            string                 `json:"uuid"`
	Description     string                 `json:"description,omitempty"`
	Characteristics []CharacteristicReport `json:"characteristics"`
}

// CharacteristicReport describes one GATT characteristic in a device report.
type CharacteristicReport struct {
	UUID        string   `json:"uuid"`
	Description string   `json:"description,omitempty"`
	Handle      int      `json:"handle,omitempty"`
	Properties  []string `json:"properties,omitempty"`
	Value       *string  `json:"value"`
}

// Client defines the interface to the external scanner.
// The HTTP implementation is the production path; tests substitute fakes.
type Client interface {
	// Scan requests a device scan in the given mode. The call blocks for
	// up to timeout plus the client's I/O margin, or until ctx is
	// cancelled, whichever comes first.
	//
	// Returns ErrNoDevices when the scanner reports an empty device list,
	// ErrScannerUnavailable for transport failures, and the context error
	// when ctx is cancelled.
	Scan(ctx context.Context, mode string, timeout time.Duration) ([]DeviceReport, error)
}

// HTTPClient implements Client over the scanner's HTTP API.
type HTTPClient struct {
	baseURL  string
	ioMargin time.Duration
	client   *http.Client
}

// NewHTTPClient creates a scanner client for the given base URL.
//
// Parameters:
//   - baseURL: Scanner microservice base URL (e.g. "http://localhost:5000")
//   - ioMargin: Fixed allowance added to each scan timeout for local I/O
//
// Returns:
//   - *HTTPClient: Configured client ready for use
func NewHTTPClient(baseURL string, ioMargin time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		ioMargin: ioMargin,
		// No client-level timeout: the per-request deadline below is
		// derived from the scan timeout and governs the whole exchange.
		client: &http.Client{},
	}
}

// scanRequest is the wire format of a scan request.
type scanRequest struct {
	Mode      string `json:"mode"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// scanResponse is the wire format of a scan response.
type scanResponse struct {
	Devices []DeviceReport `json:"devices"`
	Error   string         `json:"error,omitempty"`
}

// Scan requests a device scan and decodes the reported devices.
//
// The scanner receives the timeout as its own deadline; the HTTP wait is
// bounded by timeout + ioMargin so a hung scanner cannot block the caller
// indefinitely.
func (c *HTTPClient) Scan(ctx context.Context, mode string, timeout time.Duration) ([]DeviceReport, error) {
	body, err := json.Marshal(scanRequest{
		Mode:      mode,
		TimeoutMS: timeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding scan request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+c.ioMargin)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+scanPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Explicit caller cancellation is surfaced as such, not as a
		// transport fault.
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrScannerUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrScannerUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: scanner returned status %d", ErrScannerUnavailable, resp.StatusCode)
	}

	var parsed scanResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrScannerUnavailable, err)
	}

	if len(parsed.Devices) == 0 {
		return nil, ErrNoDevices
	}

	return parsed.Devices, nil
}

// Ping probes the scanner's liveness endpoint. The supervisor uses it as
// the watchdog health check for a managed scanner daemon.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScannerUnavailable, err)
	}
	defer resp.Body.Close()
	//nolint:errcheck // Drain so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned status %d", ErrScannerUnavailable, resp.StatusCode)
	}
	return nil
}
