package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bluetracehq/bluetrace/internal/audit"
	"github.com/bluetracehq/bluetrace/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketCleanInterval is how often expired tickets are swept.
const ticketCleanInterval = time.Minute

// signupRequest is the request body for POST /auth/signup.
type signupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is the response body for successful signup and login.
type authResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	Operator    *auth.Operator `json:"operator"`
}

// handleSignup registers a new operator account and signs them in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	op, token, err := s.auth.Signup(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "username must be 1-64 characters: letters, digits, dots, hyphens, underscores")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, ErrCodeConflict, "username already exists")
		default:
			s.logger.Error("signup failed", "error", err)
			writeInternalError(w, "failed to create account")
		}
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:      audit.ActionOperatorSignup,
		SubjectType: audit.SubjectOperator,
		SubjectID:   op.ID,
		OperatorID:  op.ID,
		Source:      "api",
	})

	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Operator:    op,
	})
}

// handleLogin authenticates an operator and returns a JWT token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	op, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "failed to sign in")
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:      audit.ActionOperatorLogin,
		SubjectType: audit.SubjectOperator,
		SubjectID:   op.ID,
		OperatorID:  op.ID,
		Source:      "api",
	})

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Operator:    op,
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	operatorID string
	expiresAt  time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		operatorID: operatorID(r),
		expiresAt:  time.Now().Add(ticketTTL),
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket checks if a ticket is valid and consumes it (single-use).
func (s *Server) validateTicket(ticket string) (ticketEntry, bool) {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	entry, ok := s.tickets.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(s.tickets.tickets, ticket)

	return entry, time.Now().Before(entry.expiresAt)
}

// cleanTicketsLoop periodically removes expired tickets that were never used.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketCleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.tickets.mu.Lock()
			for ticket, entry := range s.tickets.tickets {
				if now.After(entry.expiresAt) {
					delete(s.tickets.tickets, ticket)
				}
			}
			s.tickets.mu.Unlock()
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
