package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperatorRepository defines the interface for operator account persistence.
type OperatorRepository interface {
	Create(ctx context.Context, op *Operator) error
	GetByID(ctx context.Context, id string) (*Operator, error)
	GetByUsername(ctx context.Context, username string) (*Operator, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteOperatorRepository implements OperatorRepository using SQLite.
type SQLiteOperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new SQLite-backed operator repository.
func NewOperatorRepository(db *sql.DB) *SQLiteOperatorRepository {
	return &SQLiteOperatorRepository{db: db}
}

const operatorColumns = "id, username, display_name, email, password_hash, created_at, updated_at"

// Create inserts a new operator account. The ID is generated if empty.
// Returns ErrUsernameExists when the username is already taken.
func (r *SQLiteOperatorRepository) Create(ctx context.Context, op *Operator) error {
	if op.ID == "" {
		op.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	op.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	op.UpdatedAt = op.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Username, op.DisplayName, nullString(op.Email),
		op.PasswordHash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating operator: %w", err)
	}

	return nil
}

// GetByID retrieves an operator by their unique ID.
func (r *SQLiteOperatorRepository) GetByID(ctx context.Context, id string) (*Operator, error) {
	return r.getOperator(ctx, "SELECT "+operatorColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername retrieves an operator by their username.
func (r *SQLiteOperatorRepository) GetByUsername(ctx context.Context, username string) (*Operator, error) {
	return r.getOperator(ctx, "SELECT "+operatorColumns+" FROM users WHERE username = ?", username)
}

// Count returns the total number of operator accounts.
func (r *SQLiteOperatorRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return count, nil
}

// getOperator executes a query and scans a single operator result.
func (r *SQLiteOperatorRepository) getOperator(ctx context.Context, query string, args ...any) (*Operator, error) {
	var op Operator
	var email sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&op.ID, &op.Username, &op.DisplayName, &email,
		&op.PasswordHash, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("scanning operator: %w", err)
	}

	if email.Valid {
		op.Email = email.String
	}
	op.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	op.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &op, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
