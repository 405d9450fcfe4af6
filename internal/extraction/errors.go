package extraction

import "errors"

var (
	// ErrScanCancelled indicates an in-flight scan was cancelled
	// cooperatively before the scanner replied. No artifacts were recorded.
	ErrScanCancelled = errors.New("extraction: scan cancelled")

	// ErrScanNotFound indicates a cancellation request named a scan handle
	// that is not in flight. It may have finished, been cancelled already,
	// or never existed.
	ErrScanNotFound = errors.New("extraction: scan not found")

	// ErrInvalidMode indicates a scan was requested with a mode outside
	// the known set.
	ErrInvalidMode = errors.New("extraction: invalid scan mode")
)
