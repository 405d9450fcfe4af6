package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/logging"
	"github.com/bluetracehq/bluetrace/internal/integrity"
	"github.com/bluetracehq/bluetrace/internal/scanner"
)

// Service orchestrates scan invocations end to end: scanner wait, per-device
// artifact recording, and lifecycle event publication.
type Service struct {
	scanner     scanner.Client
	repo        artifact.Repository
	payloads    *PayloadStore
	tracker     *Tracker
	logger      *logging.Logger
	parallelism int
	announcer   Announcer
	telemetry   TelemetryWriter
}

// Deps carries the orchestrator's collaborators. Scanner, Repo, Payloads
// and Logger are required; Announcer and Telemetry are optional side
// channels and may be nil.
type Deps struct {
	Scanner     scanner.Client
	Repo        artifact.Repository
	Payloads    *PayloadStore
	Tracker     *Tracker
	Logger      *logging.Logger
	Parallelism int
	Announcer   Announcer
	Telemetry   TelemetryWriter
}

// New creates a scan orchestrator from its dependencies.
func New(deps Deps) (*Service, error) {
	if deps.Scanner == nil {
		return nil, fmt.Errorf("extraction: scanner client is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("extraction: artifact repository is required")
	}
	if deps.Payloads == nil {
		return nil, fmt.Errorf("extraction: payload store is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("extraction: logger is required")
	}
	if deps.Tracker == nil {
		deps.Tracker = NewTracker()
	}
	if deps.Parallelism < 1 {
		deps.Parallelism = 1
	}
	return &Service{
		scanner:     deps.Scanner,
		repo:        deps.Repo,
		payloads:    deps.Payloads,
		tracker:     deps.Tracker,
		logger:      deps.Logger.With("component", "extraction"),
		parallelism: deps.Parallelism,
		announcer:   deps.Announcer,
		telemetry:   deps.Telemetry,
	}, nil
}

// RunScan performs one scan invocation for the given operator and returns
// the recorded artifacts in scanner-reported order.
//
// The call blocks for the single scanner wait, bounded by timeout plus the
// scanner client's I/O margin. Devices are then processed concurrently, up
// to the configured parallelism. A device whose payload cannot be written
// or hashed is recorded as a failed artifact; the batch continues. A device
// already present in the store is returned as-is without touching its
// frozen record.
//
// Returns:
//   - scanner.ErrScannerUnavailable: scanner unreachable or returned garbage
//   - scanner.ErrNoDevices: scan completed but found nothing
//   - ErrScanCancelled: cancelled via ctx or CancelScan before the scanner replied
//   - other errors: the artifact store itself failed mid-batch
func (s *Service) RunScan(ctx context.Context, operatorID string, mode artifact.Mode, timeout time.Duration) ([]artifact.Artifact, error) {
	if !artifact.IsValidMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	info, scanCtx, release := s.tracker.Begin(ctx, operatorID, mode)
	defer release()

	s.logger.Info("scan started",
		"handle", info.Handle,
		"operator_id", operatorID,
		"mode", mode,
		"timeout", timeout.String(),
	)
	s.announce(ScanEvent{
		Type:       EventScanStarted,
		Handle:     info.Handle,
		OperatorID: operatorID,
		Mode:       mode,
	})

	reports, err := s.scanner.Scan(scanCtx, string(mode), timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = ErrScanCancelled
		}
		s.logger.Warn("scan ended without artifacts", "handle", info.Handle, "error", err)
		s.announce(ScanEvent{
			Type:       EventScanCompleted,
			Handle:     info.Handle,
			OperatorID: operatorID,
			Mode:       mode,
			Error:      err.Error(),
		})
		return nil, err
	}

	results := make([]*artifact.Artifact, len(reports))
	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)
	for i, rep := range reports {
		i, rep := i, rep
		g.Go(func() error {
			art, perr := s.recordDevice(ctx, info, rep)
			if perr != nil {
				return perr
			}
			results[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.announce(ScanEvent{
			Type:       EventScanCompleted,
			Handle:     info.Handle,
			OperatorID: operatorID,
			Mode:       mode,
			Error:      err.Error(),
		})
		return nil, fmt.Errorf("recording scan artifacts: %w", err)
	}

	artifacts := make([]artifact.Artifact, 0, len(results))
	for _, art := range results {
		if art != nil {
			artifacts = append(artifacts, *art)
		}
	}

	s.logger.Info("scan completed", "handle", info.Handle, "artifacts", len(artifacts))
	s.announce(ScanEvent{
		Type:       EventScanCompleted,
		Handle:     info.Handle,
		OperatorID: operatorID,
		Mode:       mode,
		Count:      len(artifacts),
	})
	return artifacts, nil
}

// CancelScan signals the in-flight scan identified by handle to stop.
func (s *Service) CancelScan(handle string) error {
	if err := s.tracker.Cancel(handle); err != nil {
		return err
	}
	s.logger.Info("scan cancellation requested", "handle", handle)
	return nil
}

// ActiveScans lists the in-flight scan invocations, oldest first.
func (s *Service) ActiveScans() []ScanInfo {
	return s.tracker.Active()
}

// ListArtifacts returns every artifact recorded for the operator, newest
// capture first.
func (s *Service) ListArtifacts(ctx context.Context, operatorID string) ([]artifact.Artifact, error) {
	return s.repo.ListByOperator(ctx, operatorID)
}

// recordDevice converts one device report into a stored artifact.
//
// The dedup check runs before any write I/O so a re-observed device costs
// one read and nothing else. Between the check and the insert another
// invocation may record the same device; the store's conflict error is the
// arbitration signal, and the loser discards its payload file and adopts
// the winner's record.
//
// Returns a nil artifact (no error) for reports missing a device address,
// which carry nothing to identify a record by.
func (s *Service) recordDevice(ctx context.Context, info ScanInfo, rep scanner.DeviceReport) (*artifact.Artifact, error) {
	if rep.Address == "" {
		s.logger.Warn("discarding device report without address", "handle", info.Handle)
		return nil, nil
	}

	existing, err := s.repo.FindByDeviceID(ctx, artifact.KindBLE, rep.Address)
	if err == nil {
		s.logger.Debug("device already recorded", "handle", info.Handle, "device_id", rep.Address)
		s.announce(ScanEvent{
			Type:       EventArtifactRecorded,
			Handle:     info.Handle,
			OperatorID: info.OperatorID,
			Mode:       info.Mode,
			Artifact:   existing,
			Reused:     true,
		})
		return existing, nil
	}
	if !errors.Is(err, artifact.ErrArtifactNotFound) {
		return nil, fmt.Errorf("checking for existing artifact: %w", err)
	}

	art := buildArtifact(info, rep)
	path, hash, ioErr := s.persistPayload(rep)
	if ioErr != nil {
		msg := ioErr.Error()
		art.Status = artifact.StatusFailed
		art.Error = &msg
		s.logger.Warn("payload persistence failed",
			"handle", info.Handle,
			"device_id", rep.Address,
			"error", ioErr,
		)
	} else {
		art.PayloadPath = path
		art.Hash = hash
	}

	if err := s.repo.Insert(ctx, art); err != nil {
		if errors.Is(err, artifact.ErrArtifactExists) {
			// Lost the insert race: another invocation recorded this
			// device between our dedup check and now. The winner's
			// record is frozen; ours is discarded.
			s.payloads.Discard(art.PayloadPath)
			winner, ferr := s.repo.FindByDeviceID(ctx, artifact.KindBLE, rep.Address)
			if ferr != nil {
				return nil, fmt.Errorf("fetching winning artifact after conflict: %w", ferr)
			}
			s.logger.Debug("insert conflict resolved", "handle", info.Handle, "device_id", rep.Address)
			return winner, nil
		}
		s.payloads.Discard(art.PayloadPath)
		return nil, fmt.Errorf("inserting artifact: %w", err)
	}

	if s.telemetry != nil && rep.RSSI != nil {
		s.telemetry.WriteSignalStrength(rep.Address, *rep.RSSI, string(info.Mode))
	}
	s.announce(ScanEvent{
		Type:       EventArtifactRecorded,
		Handle:     info.Handle,
		OperatorID: info.OperatorID,
		Mode:       info.Mode,
		Artifact:   art,
	})
	return art, nil
}

// persistPayload writes the raw report to disk and hashes the stored bytes.
func (s *Service) persistPayload(rep scanner.DeviceReport) (path, hash string, err error) {
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", "", fmt.Errorf("encoding payload: %w", err)
	}
	path, err = s.payloads.Write(rep.Address, payload)
	if err != nil {
		return "", "", err
	}
	hash, err = integrity.SumFile(path)
	if err != nil {
		s.payloads.Discard(path)
		return "", "", fmt.Errorf("hashing payload file: %w", err)
	}
	return path, hash, nil
}

func (s *Service) announce(event ScanEvent) {
	if s.announcer != nil {
		s.announcer.Announce(event)
	}
}

// buildArtifact maps one device report to an unstored artifact record.
func buildArtifact(info ScanInfo, rep scanner.DeviceReport) *artifact.Artifact {
	art := &artifact.Artifact{
		Kind:       artifact.KindBLE,
		DeviceID:   rep.Address,
		OperatorID: info.OperatorID,
		CapturedAt: time.Now().UTC(),
		Status:     artifact.StatusCompleted,
		Mode:       info.Mode,
		Metadata: artifact.Metadata{
			Name:             rep.Name,
			RSSI:             rep.RSSI,
			Details:          rep.Details,
			ManufacturerData: rep.Metadata.ManufacturerData,
			UUIDs:            rep.Metadata.UUIDs,
		},
		Services: make([]artifact.Service, 0, len(rep.Services)),
	}
	if art.Metadata.UUIDs == nil {
		art.Metadata.UUIDs = []string{}
	}
	for _, svc := range rep.Services {
		chars := make([]artifact.Characteristic, 0, len(svc.Characteristics))
		for _, ch := range svc.Characteristics {
			chars = append(chars, artifact.Characteristic{
				UUID:        ch.UUID,
				Description: ch.Description,
				Handle:      ch.Handle,
				Properties:  ch.Properties,
				Value:       ch.Value,
			})
		}
		art.Services = append(art.Services, artifact.Service{
			UUID:            svc.UUID,
			Description:     svc.Description,
			Characteristics: chars,
		})
	}
	if rep.Error != "" {
		msg := rep.Error
		art.Status = artifact.StatusFailed
		art.Error = &msg
	}
	return art
}
