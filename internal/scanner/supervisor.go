package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/bluetracehq/bluetrace/internal/infrastructure/config"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/logging"
)

// ProcessStatus represents the state of the managed scanner daemon.
type ProcessStatus string

const (
	StatusStopped  ProcessStatus = "stopped"
	StatusStarting ProcessStatus = "starting"
	StatusRunning  ProcessStatus = "running"
	StatusFailed   ProcessStatus = "failed"
)

// outputBufferSize is the buffer size for capturing daemon stdout/stderr.
const outputBufferSize = 4096

// healthProbeTimeout bounds a single watchdog probe.
const healthProbeTimeout = 5 * time.Second

// maxConsecutiveHealthFailures is how many probes must fail in a row
// before the watchdog kills a hung daemon.
const maxConsecutiveHealthFailures = 3

// Supervisor runs the scanner microservice as a managed child process.
//
// It restarts the daemon on unexpected exit with exponential backoff, and
// runs a watchdog that probes the scanner's health endpoint: a daemon
// that is alive but no longer answering is killed so the restart policy
// can bring up a fresh one.
type Supervisor struct {
	cfg    config.ManagedScannerConfig
	health func(ctx context.Context) error
	logger *logging.Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        ProcessStatus
	restartCount  int
	lastError     error
	startTime     time.Time
	stopRequested bool

	done chan struct{}
}

// NewSupervisor creates a supervisor for the scanner daemon.
//
// Parameters:
//   - cfg: Managed-scanner settings (binary, restart policy, intervals)
//   - health: Watchdog probe, typically (*HTTPClient).Ping; nil disables
//     the watchdog so only process exit triggers restarts
//   - logger: Logger instance
func NewSupervisor(cfg config.ManagedScannerConfig, health func(ctx context.Context) error, logger *logging.Logger) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 10
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 30
	}

	return &Supervisor{
		cfg:    cfg,
		health: health,
		logger: logger,
		status: StatusStopped,
	}
}

// Start launches the scanner daemon and begins monitoring it.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusRunning || s.status == StatusStarting {
		s.mu.Unlock()
		return fmt.Errorf("scanner daemon is already running")
	}
	s.status = StatusStarting
	s.stopRequested = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.startProcess(ctx); err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.lastError = err
		s.mu.Unlock()
		return err
	}

	go s.monitor(ctx)

	return nil
}

// startProcess launches the daemon binary.
func (s *Supervisor) startProcess(ctx context.Context) error {
	s.logger.Info("starting scanner daemon",
		"binary", s.cfg.Binary,
		"args", s.cfg.Args,
	)

	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...) //nolint:gosec // Binary path comes from validated configuration

	// New process group so shutdown signals reach daemon children too
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if s.cfg.WorkDir != "" {
		cmd.Dir = s.cfg.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting scanner daemon: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.status = StatusRunning
	s.startTime = time.Now()
	s.mu.Unlock()

	go s.captureOutput("stdout", stdout)
	go s.captureOutput("stderr", stderr)

	s.logger.Info("scanner daemon started", "pid", cmd.Process.Pid)

	return nil
}

// captureOutput reads from the given stream and logs each chunk.
func (s *Supervisor) captureOutput(stream string, r io.Reader) {
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.logger.Debug("scanner daemon output",
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// waitForExitOrHealthFailure blocks until the daemon exits or the
// watchdog gives up on it. A hung daemon is killed here; the monitor
// loop then applies the restart policy.
func (s *Supervisor) waitForExitOrHealthFailure(ctx context.Context, cmd *exec.Cmd) error {
	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	if s.health == nil {
		return <-exitCh
	}

	ticker := time.NewTicker(time.Duration(s.cfg.HealthCheckInterval) * time.Second)
	defer ticker.Stop()

	consecutiveFailures := 0

	for {
		select {
		case err := <-exitCh:
			return err

		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
			err := s.health(probeCtx)
			cancel()

			if err == nil {
				if consecutiveFailures > 0 {
					s.logger.Info("scanner daemon health recovered",
						"previous_failures", consecutiveFailures,
					)
				}
				consecutiveFailures = 0
				continue
			}

			consecutiveFailures++
			s.logger.Warn("scanner daemon health check failed",
				"error", err,
				"consecutive_failures", consecutiveFailures,
			)
			if consecutiveFailures < maxConsecutiveHealthFailures {
				continue
			}

			s.logger.Error("scanner daemon unresponsive, killing it",
				"failures", consecutiveFailures,
			)
			if cmd.Process != nil {
				//nolint:errcheck // Process may have exited between probe and kill
				cmd.Process.Kill()
			}

			select {
			case exitErr := <-exitCh:
				if exitErr != nil {
					return fmt.Errorf("killed after failed health checks: %w", exitErr)
				}
				return fmt.Errorf("killed after %d failed health checks", consecutiveFailures)
			case <-time.After(healthProbeTimeout):
				return fmt.Errorf("scanner daemon did not exit after kill")
			}
		}
	}
}

// monitor watches the daemon and applies the restart policy.
func (s *Supervisor) monitor(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.RLock()
		cmd := s.cmd
		s.mu.RUnlock()

		if cmd == nil {
			return
		}

		err := s.waitForExitOrHealthFailure(ctx, cmd)

		s.mu.Lock()
		stopRequested := s.stopRequested
		s.mu.Unlock()

		if stopRequested {
			s.logger.Info("scanner daemon stopped as requested")
			s.mu.Lock()
			s.status = StatusStopped
			s.mu.Unlock()
			return
		}

		s.logger.Warn("scanner daemon exited unexpectedly", "error", err)

		s.mu.Lock()
		s.lastError = err
		s.status = StatusFailed
		s.mu.Unlock()

		if !s.cfg.RestartOnFailure {
			s.logger.Info("restart disabled, leaving scanner daemon down")
			return
		}

		s.mu.Lock()
		s.restartCount++
		attempt := s.restartCount
		s.mu.Unlock()

		if s.cfg.MaxRestartAttempts > 0 && attempt > s.cfg.MaxRestartAttempts {
			s.logger.Error("max scanner daemon restart attempts reached",
				"attempts", attempt,
			)
			return
		}

		delay := s.backoffDelay(attempt)
		s.logger.Info("restarting scanner daemon",
			"attempt", attempt,
			"delay", delay.String(),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		s.mu.RLock()
		stopRequested = s.stopRequested
		s.mu.RUnlock()
		if stopRequested {
			return
		}

		if err := s.startProcess(ctx); err != nil {
			s.logger.Error("failed to restart scanner daemon", "error", err)
			// Loop continues and backs off further
		}
	}
}

// maxBackoffDelay caps the restart backoff.
const maxBackoffDelay = 5 * time.Minute

// backoffDelay returns the wait before restart attempt n (1-based):
// base delay doubled per attempt, capped at maxBackoffDelay.
func (s *Supervisor) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(s.cfg.RestartDelay) * time.Second
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	return delay
}

// Stop gracefully stops the scanner daemon. It signals the process group
// with SIGTERM, waits for the graceful timeout, then SIGKILLs.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.status != StatusRunning && s.status != StatusStarting {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done == nil {
		return nil
	}

	pid := cmd.Process.Pid
	s.logger.Info("stopping scanner daemon", "pid", pid)

	// Negative PID signals the whole process group (created via Setpgid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			s.logger.Warn("failed to signal scanner daemon group", "error", err)
		}
	}

	select {
	case <-done:
		s.logger.Info("scanner daemon stopped gracefully")
		return nil
	case <-time.After(time.Duration(s.cfg.GracefulTimeout) * time.Second):
		s.logger.Warn("scanner daemon graceful shutdown timed out, sending SIGKILL")
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing scanner daemon group: %w", err)
		}
	}

	<-done
	s.logger.Info("scanner daemon killed")

	return nil
}

// Status returns the current daemon state.
func (s *Supervisor) Status() ProcessStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsRunning reports whether the daemon is currently running.
func (s *Supervisor) IsRunning() bool {
	return s.Status() == StatusRunning
}

// RestartCount returns how many times the daemon has been restarted.
func (s *Supervisor) RestartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restartCount
}

// LastError returns the error from the daemon's last unexpected exit.
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// PID returns the daemon's process ID, or 0 if not running.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Pid
	}
	return 0
}

// Uptime returns how long the daemon has been up, or 0 when stopped.
func (s *Supervisor) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusRunning {
		return 0
	}
	return time.Since(s.startTime)
}
