package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSignalStrength records one RSSI reading for a scanned device.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tagging by capture mode lets analysts compare shielded and ambient
// observations of the same device.
//
// Parameters:
//   - deviceID: Scanner-assigned device identifier (hardware address)
//   - rssi: Received signal strength in dBm
//   - mode: Capture mode the reading was taken under ("isolated", "ambient")
func (c *Client) WriteSignalStrength(deviceID string, rssi int, mode string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"signal_strength",
		map[string]string{
			"device_id": deviceID,
			"mode":      mode,
		},
		map[string]interface{}{
			"rssi": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteScanMetric records one scan-level measurement, such as the number of
// devices discovered or the scan duration.
//
// Parameters:
//   - handle: Scan invocation handle
//   - metricName: Metric name (e.g. "devices_found", "duration_ms")
//   - value: The metric value
func (c *Client) WriteScanMetric(handle string, metricName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scan_metrics",
		map[string]string{
			"handle": handle,
			"metric": metricName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
