// Package influxdb provides the time-series telemetry client for
// BlueTrace Core.
//
// Signal strength readings taken during scans are written here so analysts
// can study RF conditions over the course of an operation: how a device's
// RSSI evolved, when it appeared, and how crowded the environment was.
//
// Writes are non-blocking and batched; a slow or absent InfluxDB never
// stalls ingestion. The client is optional and Core runs without it.
package influxdb
