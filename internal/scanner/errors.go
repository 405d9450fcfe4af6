package scanner

import "errors"

// Domain errors for the scanner package.
var (
	// ErrScannerUnavailable is returned when the scanner microservice
	// cannot be reached, times out, or returns a malformed response.
	// Fatal to the scan invocation; nothing has been persisted.
	ErrScannerUnavailable = errors.New("scanner: unavailable")

	// ErrNoDevices is returned when the scanner was reached but reported
	// zero devices. A recoverable, user-facing condition, distinct from
	// a transport failure.
	ErrNoDevices = errors.New("scanner: no devices found")
)
