package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteUserStore implements UserStore using SQLite.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

const userColumns = `id, email, password_hash, role_id, status, refresh_token_hash, deleted_at, created_at, updated_at`

// Create inserts a new user account and fills in the generated ID.
// The email is normalised before storage.
func (s *SQLiteUserStore) Create(ctx context.Context, identity *Identity) error {
	now := time.Now().UTC().Format(time.RFC3339)
	identity.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	identity.UpdatedAt = identity.CreatedAt
	identity.Email = NormalizeEmail(identity.Email)
	if identity.Status == "" {
		identity.Status = StatusActive
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role_id, status, refresh_token_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		identity.Email, identity.PasswordHash, nullInt64(identity.RoleID),
		string(identity.Status), nullStringPtr(identity.RefreshTokenHash), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	identity.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted user id: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID. Soft-deleted accounts are excluded.
func (s *SQLiteUserStore) GetByID(ctx context.Context, id int64) (*Identity, error) {
	return s.getUser(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL", id)
}

// GetByEmail retrieves a user by email. The lookup is normalised the same way
// Create is, so case differences never produce duplicates or misses.
func (s *SQLiteUserStore) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.getUser(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? AND deleted_at IS NULL",
		NormalizeEmail(email))
}

// GetByRefreshTokenHash retrieves the user holding the given refresh token
// hash. At most one account can hold a given hash since slots are replaced
// wholesale on login.
func (s *SQLiteUserStore) GetByRefreshTokenHash(ctx context.Context, hash string) (*Identity, error) {
	return s.getUser(ctx,
		"SELECT "+userColumns+" FROM users WHERE refresh_token_hash = ? AND deleted_at IS NULL", hash)
}

// List returns all non-deleted users ordered by creation date.
func (s *SQLiteUserStore) List(ctx context.Context) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if identities == nil {
		identities = []Identity{}
	}
	return identities, nil
}

// Update modifies a user's mutable fields (email, role_id, status).
func (s *SQLiteUserStore) Update(ctx context.Context, identity *Identity) error {
	now := time.Now().UTC().Format(time.RFC3339)
	identity.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	identity.Email = NormalizeEmail(identity.Email)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, role_id = ?, status = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		identity.Email, nullInt64(identity.RoleID), string(identity.Status), now, identity.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword changes a user's password hash.
func (s *SQLiteUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshTokenHash replaces the user's single refresh token slot.
// Pass nil to clear the slot (logout).
func (s *SQLiteUserStore) SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		nullStringPtr(hash), now, id,
	)
	if err != nil {
		return fmt.Errorf("updating refresh token hash: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus changes a user's account status.
func (s *SQLiteUserStore) SetStatus(ctx context.Context, id int64, status Status) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		string(status), now, id,
	)
	if err != nil {
		return fmt.Errorf("updating user status: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a user account as deleted and clears the refresh slot so
// the account cannot keep minting access tokens.
func (s *SQLiteUserStore) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, refresh_token_hash = NULL, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of non-deleted user accounts.
func (s *SQLiteUserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// getUser executes a query and scans a single user result.
func (s *SQLiteUserStore) getUser(ctx context.Context, query string, args ...any) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	return scanIdentity(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanIdentity scans an identity from any scanner (Row or Rows).
func scanIdentity(sc scanner) (*Identity, error) {
	var id Identity
	var roleID sql.NullInt64
	var status string
	var refreshHash, deletedAt sql.NullString
	var createdAt, updatedAt string

	err := sc.Scan(&id.ID, &id.Email, &id.PasswordHash, &roleID, &status,
		&refreshHash, &deletedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	id.Status = Status(status)
	if roleID.Valid {
		id.RoleID = &roleID.Int64
	}
	if refreshHash.Valid {
		id.RefreshTokenHash = &refreshHash.String
	}
	if deletedAt.Valid {
		t, err := time.Parse(time.RFC3339, deletedAt.String)
		if err == nil {
			id.DeletedAt = &t
		}
	}

	id.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	id.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &id, nil
}

// Helper functions.

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
