package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRoleStore implements RoleStore using SQLite. Permission maps are
// stored as JSON in a TEXT column.
type SQLiteRoleStore struct {
	db *sql.DB
}

// NewRoleStore creates a new SQLite-backed role store.
func NewRoleStore(db *sql.DB) *SQLiteRoleStore {
	return &SQLiteRoleStore{db: db}
}

const roleColumns = `id, name, permissions, created_at, updated_at`

// GetByID retrieves a role by ID.
func (s *SQLiteRoleStore) GetByID(ctx context.Context, id int64) (*Role, error) {
	return s.getRole(ctx, "SELECT "+roleColumns+" FROM roles WHERE id = ?", id)
}

// GetByName retrieves a role by its unique name.
func (s *SQLiteRoleStore) GetByName(ctx context.Context, name string) (*Role, error) {
	return s.getRole(ctx, "SELECT "+roleColumns+" FROM roles WHERE name = ?", name)
}

// List returns all roles ordered by name.
func (s *SQLiteRoleStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// Create inserts a new role and fills in the generated ID.
func (s *SQLiteRoleStore) Create(ctx context.Context, role *Role) error {
	now := time.Now().UTC().Format(time.RFC3339)
	role.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	role.UpdatedAt = role.CreatedAt

	permissions, err := EncodePermissionMap(role.Permissions)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (name, permissions, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		role.Name, string(permissions), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q already exists", role.Name)
		}
		return fmt.Errorf("creating role: %w", err)
	}

	role.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted role id: %w", err)
	}
	return nil
}

// SetPermissions replaces a role's permission map wholesale.
func (s *SQLiteRoleStore) SetPermissions(ctx context.Context, id int64, permissions PermissionMap) error {
	encoded, err := EncodePermissionMap(permissions)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE roles SET permissions = ?, updated_at = ? WHERE id = ?`,
		string(encoded), now, id,
	)
	if err != nil {
		return fmt.Errorf("updating role permissions: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// getRole executes a query and scans a single role result.
func (s *SQLiteRoleStore) getRole(ctx context.Context, query string, args ...any) (*Role, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	return scanRole(row)
}

// scanRole scans a role from any scanner (Row or Rows).
func scanRole(sc scanner) (*Role, error) {
	var r Role
	var permissions string
	var createdAt, updatedAt string

	err := sc.Scan(&r.ID, &r.Name, &permissions, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("scanning role: %w", err)
	}

	r.Permissions, err = DecodePermissionMap([]byte(permissions))
	if err != nil {
		return nil, fmt.Errorf("role %d: %w", r.ID, err)
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &r, nil
}
