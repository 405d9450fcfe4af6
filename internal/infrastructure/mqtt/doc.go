// Package mqtt provides the MQTT client for BlueTrace Core.
//
// Core publishes scan lifecycle events and artifact announcements so that
// on-site tooling (evidence dashboards, capture vans, alerting) can follow
// ingestion in real time without polling the API.
//
// The client wraps paho.mqtt.golang with connection management, automatic
// reconnection with exponential backoff, and Last Will and Testament so
// subscribers can distinguish a crash from a graceful shutdown.
//
// Topic hierarchy:
//
//	bluetrace/system/status          retained service status (online/offline)
//	bluetrace/scans/events           scan lifecycle events (started/completed)
//	bluetrace/artifacts/{device_id}  retained per-device artifact announcements
//
// All methods are safe for concurrent use from multiple goroutines.
package mqtt
