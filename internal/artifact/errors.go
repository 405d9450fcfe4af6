package artifact

import "errors"

// Domain errors for the artifact package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, artifact.ErrArtifactExists) {
//	    // conflict: re-fetch the winning record
//	}
var (
	// ErrArtifactNotFound is returned when no artifact matches the query.
	ErrArtifactNotFound = errors.New("artifact: not found")

	// ErrArtifactExists is returned when inserting an artifact whose
	// (kind, device_id) pair is already recorded. Exactly one of any set
	// of racing inserts succeeds; all others receive this error and must
	// re-fetch the winner via FindByDeviceID.
	ErrArtifactExists = errors.New("artifact: already exists")

	// ErrInvalidArtifact is returned when artifact validation fails.
	ErrInvalidArtifact = errors.New("artifact: invalid")
)
