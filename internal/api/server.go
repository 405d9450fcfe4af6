// Package api provides the HTTP REST API and WebSocket server for
// BlueTrace Core.
//
// It exposes operator authentication, scan orchestration, and the recorded
// extraction artifacts to field tooling (capture consoles, evidence
// dashboards).
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/audit"
	"github.com/bluetracehq/bluetrace/internal/auth"
	"github.com/bluetracehq/bluetrace/internal/extraction"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/config"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ScanService is the orchestrator surface the API exposes.
// extraction.Service is the production implementation; tests substitute fakes.
type ScanService interface {
	RunScan(ctx context.Context, operatorID string, mode artifact.Mode, timeout time.Duration) ([]artifact.Artifact, error)
	CancelScan(handle string) error
	ActiveScans() []extraction.ScanInfo
	ListArtifacts(ctx context.Context, operatorID string) ([]artifact.Artifact, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Scanner     config.ScannerConfig
	Logger      *logging.Logger
	Scans       ScanService
	Auth        *auth.Service
	Audit       audit.Repository // Optional: custody journal (enables GET /audit)
	ExternalHub *Hub             // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for BlueTrace Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	scannerCfg config.ScannerConfig
	logger     *logging.Logger
	scans      ScanService
	auth       *auth.Service
	audit      audit.Repository
	version    string

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	tickets     *ticketStore       // pending WebSocket tickets
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, scan service, auth)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Scans == nil {
		return nil, fmt.Errorf("scan service is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		scannerCfg: deps.Scanner,
		logger:     deps.Logger,
		scans:      deps.Scans,
		auth:       deps.Auth,
		audit:      deps.Audit,
		version:    deps.Version,
		tickets:    newTicketStore(),
	}

	// Use externally-provided hub if available (needed when the orchestrator
	// also requires the hub for event broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
