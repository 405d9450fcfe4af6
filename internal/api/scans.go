package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/extraction"
	"github.com/bluetracehq/bluetrace/internal/scanner"
)

// Scan timeout bounds. The configured default applies when the request
// omits timeout_ms.
const (
	minScanTimeout = time.Second
	maxScanTimeout = 10 * time.Minute

	// scanResponseMargin is the slice of the HTTP write timeout reserved
	// for encoding the response after the scan returns.
	scanResponseMargin = 5 * time.Second
)

// runScanRequest is the request body for POST /scans.
type runScanRequest struct {
	Mode      string `json:"mode"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// runScanResponse is the response body for POST /scans.
type runScanResponse struct {
	Artifacts []artifact.Artifact `json:"artifacts"`
	Count     int                 `json:"count"`
}

// handleRunScan performs one blocking scan invocation for the calling
// operator and returns the recorded artifacts.
//
// The request blocks for the duration of the scan; clients must use a read
// timeout larger than the requested scan timeout. In-flight scans can be
// aborted from another connection via DELETE /scans/{handle}.
func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	var req runScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	mode := artifact.Mode(req.Mode)
	if !artifact.IsValidMode(mode) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "mode must be \"isolated\" or \"ambient\"")
		return
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if req.TimeoutMS == 0 {
		timeout = time.Duration(s.scannerCfg.DefaultTimeout) * time.Millisecond
	}
	if timeout < minScanTimeout || timeout > s.maxScanTimeout() {
		msg := fmt.Sprintf("timeout_ms must be between %d and %d",
			minScanTimeout.Milliseconds(), s.maxScanTimeout().Milliseconds())
		writeError(w, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	artifacts, err := s.scans.RunScan(r.Context(), operatorID(r), mode, timeout)
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrNoDevices):
			writeNotFound(w, "scan completed but no devices were found")
		case errors.Is(err, scanner.ErrScannerUnavailable):
			writeError(w, http.StatusBadGateway, ErrCodeScannerDown, "scanner is unreachable")
		case errors.Is(err, extraction.ErrScanCancelled):
			writeConflict(w, ErrCodeScanCancelled, "scan was cancelled before completion")
		default:
			s.logger.Error("scan failed", "error", err)
			writeInternalError(w, "scan failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, runScanResponse{
		Artifacts: artifacts,
		Count:     len(artifacts),
	})
}

// maxScanTimeout returns the longest scan the server can answer: the
// static ceiling, tightened to fit inside the configured HTTP write
// timeout. A scan that outlives the write timeout would have its
// response connection killed mid-flight.
func (s *Server) maxScanTimeout() time.Duration {
	limit := maxScanTimeout
	if s.cfg.Timeouts.Write > 0 {
		if wt := time.Duration(s.cfg.Timeouts.Write)*time.Second - scanResponseMargin; wt < limit {
			limit = wt
		}
	}
	return limit
}

// handleListScans returns the in-flight scan invocations.
func (s *Server) handleListScans(w http.ResponseWriter, _ *http.Request) {
	scans := s.scans.ActiveScans()
	writeJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

// handleCancelScan aborts an in-flight scan by its handle.
func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	if err := s.scans.CancelScan(handle); err != nil {
		if errors.Is(err, extraction.ErrScanNotFound) {
			writeNotFound(w, "no scan in flight with that handle")
			return
		}
		s.logger.Error("scan cancellation failed", "handle", handle, "error", err)
		writeInternalError(w, "failed to cancel scan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
