package extraction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bluetracehq/bluetrace/internal/artifact"
)

// ScanInfo describes one in-flight scan invocation.
type ScanInfo struct {
	Handle     string        `json:"handle"`
	OperatorID string        `json:"operator_id"`
	Mode       artifact.Mode `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
}

// Tracker is the registry of in-flight scans. Each invocation is assigned
// an opaque handle on entry; holding the handle grants the right to cancel
// the invocation from another goroutine.
type Tracker struct {
	mu    sync.Mutex
	scans map[string]trackedScan
}

type trackedScan struct {
	info   ScanInfo
	cancel context.CancelFunc
}

// NewTracker creates an empty scan tracker.
func NewTracker() *Tracker {
	return &Tracker{scans: make(map[string]trackedScan)}
}

// Begin registers a new in-flight scan and derives a cancellable context
// from ctx. The returned release function deregisters the scan and must be
// called exactly once, typically via defer.
func (t *Tracker) Begin(ctx context.Context, operatorID string, mode artifact.Mode) (ScanInfo, context.Context, func()) {
	scanCtx, cancel := context.WithCancel(ctx)
	info := ScanInfo{
		Handle:     "scan-" + uuid.NewString()[:8],
		OperatorID: operatorID,
		Mode:       mode,
		StartedAt:  time.Now().UTC(),
	}

	t.mu.Lock()
	t.scans[info.Handle] = trackedScan{info: info, cancel: cancel}
	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		delete(t.scans, info.Handle)
		t.mu.Unlock()
		cancel()
	}
	return info, scanCtx, release
}

// Cancel signals the scan identified by handle to stop. The invocation
// observes the signal at its blocking wait on the scanner and returns
// ErrScanCancelled to its own caller.
//
// Returns ErrScanNotFound when no scan with that handle is in flight.
// Cancelling a scan that has already finished is not an error condition
// the caller can avoid racing against, so callers should treat
// ErrScanNotFound as benign where appropriate.
func (t *Tracker) Cancel(handle string) error {
	t.mu.Lock()
	scan, ok := t.scans[handle]
	t.mu.Unlock()
	if !ok {
		return ErrScanNotFound
	}
	scan.cancel()
	return nil
}

// Active returns the in-flight scans, oldest first.
func (t *Tracker) Active() []ScanInfo {
	t.mu.Lock()
	infos := make([]ScanInfo, 0, len(t.scans))
	for _, scan := range t.scans {
		infos = append(infos, scan.info)
	}
	t.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].StartedAt.Before(infos[j].StartedAt) })
	return infos
}
