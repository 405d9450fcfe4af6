// Package audit maintains the chain-of-custody journal.
//
// Every action taken against the evidence store — scans started, artifacts
// recorded or reused, cancellations, operator account activity — is
// appended to the custody_log table. Rows are never updated or deleted;
// the journal is the authoritative answer to "who touched this evidence,
// and when".
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subject types recorded in the journal.
const (
	SubjectScan     = "scan"
	SubjectArtifact = "artifact"
	SubjectOperator = "operator"
)

// Actions recorded in the journal.
const (
	ActionScanStarted      = "scan_started"
	ActionScanCompleted    = "scan_completed"
	ActionScanCancelled    = "scan_cancelled"
	ActionArtifactRecorded = "artifact_recorded"
	ActionArtifactReused   = "artifact_reused"
	ActionOperatorSignup   = "operator_signup"
	ActionOperatorLogin    = "operator_login"
)

// Entry is a single chain-of-custody record.
type Entry struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id,omitempty"`
	OperatorID  string         `json:"operator_id,omitempty"`
	Source      string         `json:"source"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Filter controls which custody entries to return.
type Filter struct {
	Action      string // optional: filter by action
	SubjectType string // optional: scan, artifact, operator
	SubjectID   string // optional: filter by specific subject ID
	OperatorID  string // optional: filter by acting operator
	Limit       int    // default 50, max 200
	Offset      int    // pagination offset
}

// ListResult contains the paginated custody journal results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for custody journal operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores custody entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new custody journal repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create appends a new custody entry. The ID and CreatedAt are generated
// if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "cst-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling custody details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO custody_log (id, action, subject_type, subject_id, operator_id, source, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.SubjectType,
		nullableString(entry.SubjectID), nullableString(entry.OperatorID),
		entry.Source, detailsJSON,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting custody entry: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns custody entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for custody queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.SubjectType != "" {
		conditions = append(conditions, "subject_type = ?")
		args = append(args, filter.SubjectType)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.OperatorID != "" {
		conditions = append(conditions, "operator_id = ?")
		args = append(args, filter.OperatorID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM custody_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting custody entries: %w", err)
	}

	// Get paginated results.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, action, subject_type, subject_id, operator_id, source, details, created_at FROM custody_log %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying custody entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating custody entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// scanEntry reads one custody row.
func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var subjectID, operatorID, detailsJSON sql.NullString
	var createdAt string

	if err := rows.Scan(&entry.ID, &entry.Action, &entry.SubjectType,
		&subjectID, &operatorID, &entry.Source, &detailsJSON, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning custody entry: %w", err)
	}

	if subjectID.Valid {
		entry.SubjectID = subjectID.String
	}
	if operatorID.Valid {
		entry.OperatorID = operatorID.String
	}
	if detailsJSON.Valid && detailsJSON.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
			entry.Details = details
		}
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing custody timestamp %q: %w", createdAt, err)
	}
	entry.CreatedAt = t

	return entry, nil
}
