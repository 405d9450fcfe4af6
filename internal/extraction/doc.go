// Package extraction provides the Scan Orchestrator for BlueTrace Core.
//
// The orchestrator is the core ingestion pipeline: it issues a bounded-time
// scan request to the external scanner, then converts each reported device
// into a content-addressed extraction artifact with at-most-once write
// semantics.
//
// # Pipeline
//
//	caller ──▶ RunScan ──▶ scanner (single blocking wait, bounded by timeout)
//	                │
//	                ▼ per device, in parallel
//	   ┌────────────────────────────────────┐
//	   │ dedup check (before any write I/O) │
//	   │ write raw payload ▸ hash ▸ insert  │
//	   │ on conflict: re-fetch the winner   │
//	   └────────────────────────────────────┘
//	                │
//	                ▼
//	     artifacts in scanner-reported order
//
// # Failure containment
//
// A single device's storage or hashing failure is recorded on that
// artifact (status failed, error populated) and never aborts the batch.
// Only three conditions are fatal to an invocation: the scanner being
// unreachable, an empty device list, and cooperative cancellation. None of
// them leaves artifacts behind.
//
// # Concurrency
//
// Invocations are independent units of work and may run concurrently.
// Devices within one invocation are mutually independent except when they
// collide on the same device identifier, which the artifact store's atomic
// insert arbitrates; the conflict-and-refetch pattern replaces locking.
// Cancellation is observed at the single blocking wait on the scanner;
// per-device processing is bounded and fast and has no cancellation path
// of its own.
package extraction
