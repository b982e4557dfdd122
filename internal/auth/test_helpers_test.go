package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			permissions TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role_id INTEGER REFERENCES roles(id),
			status TEXT NOT NULL DEFAULT 'active',
			refresh_token_hash TEXT,
			deleted_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX idx_users_email ON users(email);
		CREATE INDEX idx_users_refresh_token_hash ON users(refresh_token_hash);

		CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER,
			action TEXT NOT NULL,
			target TEXT,
			detail TEXT,
			created_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying auth schema: %v", err)
	}

	return db
}

// seedTestRole inserts a role with the given permissions and returns it.
func seedTestRole(t *testing.T, db *sql.DB, name string, permissions PermissionMap) *Role {
	t.Helper()

	store := NewRoleStore(db)
	role := &Role{Name: name, Permissions: permissions}
	if err := store.Create(context.Background(), role); err != nil {
		t.Fatalf("creating test role %s: %v", name, err)
	}
	return role
}

// seedTestUser inserts an active user with password "test-password" and
// returns it.
func seedTestUser(t *testing.T, db *sql.DB, email string, roleID *int64) *Identity {
	t.Helper()

	hasher := NewPasswordHasher(4) // min cost keeps tests fast
	hash, err := hasher.Hash("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	store := NewUserStore(db)
	user := &Identity{
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		Status:       StatusActive,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}
