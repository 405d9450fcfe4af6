// Package artifact provides the Artifact Store for BlueTrace Core.
//
// An extraction artifact is the durable record of one discovered wireless
// device: its identity, the content hash binding it to the raw payload
// written at capture time, and a lifecycle status. Artifacts are the unit
// of forensic evidence the rest of the system produces and queries.
//
// # Key Types
//
//   - Artifact: The persisted record for one discovered device
//   - Kind: Scan modality the artifact belongs to (currently BLE)
//   - Status: Lifecycle state (pending, completed, failed)
//   - Mode: Capture context (isolated, ambient)
//   - Metadata: Advertisement data captured alongside the payload
//
// # Uniqueness and Concurrency
//
// The store enforces a uniqueness constraint on (kind, device_id). Insert
// is atomic with respect to that constraint: when two callers race to
// insert the same device, exactly one insert succeeds and the other
// receives ErrArtifactExists. The loser must re-fetch via FindByDeviceID
// to obtain the winning record. This insert-or-conflict contract replaces
// locking with optimistic concurrency; it is the only point of required
// mutual exclusion in the ingestion pipeline.
//
// # Chain of Custody
//
// Artifacts are frozen after creation. A re-scan that rediscovers a known
// device resolves to the existing record; there is no update path, so the
// first capture's hash, payload, and timestamp are never overwritten.
//
// # Usage
//
//	repo := artifact.NewSQLiteRepository(db)
//	err := repo.Insert(ctx, art)
//	if errors.Is(err, artifact.ErrArtifactExists) {
//	    art, err = repo.FindByDeviceID(ctx, art.Kind, art.DeviceID)
//	}
package artifact
