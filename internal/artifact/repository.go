package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for artifact persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// FindByDeviceID retrieves the artifact for a device within a kind.
	// Returns ErrArtifactNotFound if no artifact exists for the pair.
	FindByDeviceID(ctx context.Context, kind Kind, deviceID string) (*Artifact, error)

	// Insert persists a new artifact. Atomic against the (kind, device_id)
	// uniqueness constraint: under racing inserts for the same device,
	// exactly one succeeds and the rest receive ErrArtifactExists.
	Insert(ctx context.Context, art *Artifact) error

	// ListByOperator retrieves all artifacts owned by an operator, newest
	// capture first. Returns an empty slice (not an error) when the
	// operator owns none.
	ListByOperator(ctx context.Context, operatorID string) ([]Artifact, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// capturedAtLayout is a fixed-width RFC 3339 variant. Trailing zeros are
// kept so that lexicographic ordering of the stored text matches
// chronological ordering, which ORDER BY captured_at DESC relies on.
const capturedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// artifactColumns is the column list shared by all artifact queries.
const artifactColumns = `id, kind, device_id, operator_id, captured_at,
	hash, payload_path, status, mode, metadata, services, error`

// FindByDeviceID retrieves the artifact for a device within a kind.
func (r *SQLiteRepository) FindByDeviceID(ctx context.Context, kind Kind, deviceID string) (*Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM extractions
		WHERE kind = ? AND device_id = ?`

	row := r.db.QueryRowContext(ctx, query, string(kind), deviceID)
	art, err := scanArtifactRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("querying artifact by device id: %w", err)
	}
	return art, nil
}

// Insert persists a new artifact.
//
// The record ID is generated if empty, and CapturedAt defaults to now.
// A unique constraint violation on (kind, device_id) maps to
// ErrArtifactExists; the caller decides whether that is a conflict to
// recover from or a bug.
func (r *SQLiteRepository) Insert(ctx context.Context, art *Artifact) error {
	if art.DeviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArtifact)
	}
	if art.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidArtifact)
	}
	if art.ID == "" {
		art.ID = "ext-" + uuid.NewString()[:16]
	}
	if art.CapturedAt.IsZero() {
		art.CapturedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(art.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	services := art.Services
	if services == nil {
		services = []Service{}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("marshalling services: %w", err)
	}

	query := `
		INSERT INTO extractions (
			id, kind, device_id, operator_id, captured_at,
			hash, payload_path, status, mode, metadata, services, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		art.ID,
		string(art.Kind),
		art.DeviceID,
		art.OperatorID,
		art.CapturedAt.UTC().Format(capturedAtLayout),
		art.Hash,
		art.PayloadPath,
		string(art.Status),
		string(art.Mode),
		string(metadataJSON),
		string(servicesJSON),
		nullableString(art.Error),
	)
	if err != nil {
		if isDeviceConflictError(err) {
			return ErrArtifactExists
		}
		return fmt.Errorf("inserting artifact: %w", err)
	}

	return nil
}

// ListByOperator retrieves all artifacts owned by an operator, newest first.
func (r *SQLiteRepository) ListByOperator(ctx context.Context, operatorID string) ([]Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM extractions
		WHERE operator_id = ?
		ORDER BY captured_at DESC`

	rows, err := r.db.QueryContext(ctx, query, operatorID)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		art, err := scanArtifactRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, *art)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}

	return artifacts, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanArtifactRow scans a row or rows result into an Artifact.
func scanArtifactRow(scanner rowScanner) (*Artifact, error) {
	var a Artifact
	var kind, status, mode string
	var capturedAt string
	var metadataJSON, servicesJSON string
	var errMsg sql.NullString

	err := scanner.Scan(
		&a.ID,
		&kind,
		&a.DeviceID,
		&a.OperatorID,
		&capturedAt,
		&a.Hash,
		&a.PayloadPath,
		&status,
		&mode,
		&metadataJSON,
		&servicesJSON,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = Kind(kind)
	a.Status = Status(status)
	a.Mode = Mode(mode)

	if errMsg.Valid {
		a.Error = &errMsg.String
	}

	a.CapturedAt, err = time.Parse(capturedAtLayout, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing captured_at: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	if err := json.Unmarshal([]byte(servicesJSON), &a.Services); err != nil {
		return nil, fmt.Errorf("unmarshalling services: %w", err)
	}

	return &a, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isDeviceConflictError checks whether an error is the SQLite unique
// constraint violation on (kind, device_id). SQLite names the violated
// columns in the message, so an id primary-key collision stays a plain
// insert error rather than masquerading as a device conflict.
func isDeviceConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, "device_id")
}
