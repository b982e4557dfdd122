package auth

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shoplane/shoplane-core/internal/infrastructure/logging"
)

// testService wires a Service over a temp SQLite database.
func testService(t *testing.T) (*Service, *SQLiteUserStore, *sql.DB) {
	t.Helper()

	db := testDB(t)
	users := NewUserStore(db)
	roles := NewRoleStore(db)
	hasher := NewPasswordHasher(4)
	codec := NewTokenCodec(testSecret, 30*time.Minute)
	cache := NewPermissionCache(roles, time.Minute)
	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	return NewService(users, roles, hasher, codec, cache, logger), users, db
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := testService(t)

	identity, err := svc.Register(context.Background(), "  Anna@Example.COM ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if identity.Email != "anna@example.com" {
		t.Errorf("Email = %q, want normalised %q", identity.Email, "anna@example.com")
	}
	if identity.ID == 0 {
		t.Error("Register() should assign an ID")
	}
	if identity.Status != StatusActive {
		t.Errorf("Status = %q, want %q", identity.Status, StatusActive)
	}
	if identity.RoleID != nil {
		t.Error("new accounts should have no role")
	}

	session, err := svc.Login(context.Background(), "anna@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Error("Login() should return both tokens")
	}
	if session.Identity.RefreshTokenHash == nil {
		t.Error("login should store a refresh token hash")
	}
	if *session.Identity.RefreshTokenHash == session.RefreshToken {
		t.Error("stored hash must not equal the raw refresh token")
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.Register(context.Background(), "not-an-email", "pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Register() with bad email error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Register(context.Background(), "ok@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Register() with empty password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.Register(context.Background(), "dup@example.com", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// Same address with different casing collides after normalisation.
	if _, err := svc.Register(context.Background(), "DUP@example.com", "password2"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Register() duplicate error = %v, want ErrEmailExists", err)
	}
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, db := testService(t)
	seedTestUser(t, db, "known@example.com", nil)

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPass := svc.Login(context.Background(), "known@example.com", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", errWrongPass)
	}
	if errUnknown.Error() != errWrongPass.Error() {
		t.Errorf("errors must be indistinguishable: %q vs %q", errUnknown, errWrongPass)
	}
}

func TestService_LoginInactiveAccount(t *testing.T) {
	svc, users, db := testService(t)
	user := seedTestUser(t, db, "dormant@example.com", nil)

	for _, status := range []Status{StatusInactive, StatusBanned} {
		if err := users.SetStatus(context.Background(), user.ID, status); err != nil {
			t.Fatalf("SetStatus(%s) error = %v", status, err)
		}

		// Correct credentials, wrong status.
		if _, err := svc.Login(context.Background(), "dormant@example.com", "test-password"); !errors.Is(err, ErrAccountNotActive) {
			t.Errorf("Login() with status %s error = %v, want ErrAccountNotActive", status, err)
		}

		// Wrong credentials still win: the caller learns nothing about status.
		if _, err := svc.Login(context.Background(), "dormant@example.com", "bad-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login() bad password with status %s error = %v, want ErrInvalidCredentials", status, err)
		}
	}
}

func TestService_LoginReplacesRefreshSlot(t *testing.T) {
	svc, _, db := testService(t)
	seedTestUser(t, db, "multi@example.com", nil)

	first, err := svc.Login(context.Background(), "multi@example.com", "test-password")
	if err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	second, err := svc.Login(context.Background(), "multi@example.com", "test-password")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatal("each login should mint a fresh refresh token")
	}

	// The first device's refresh token is dead.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Refresh() with replaced token error = %v, want ErrInvalidRefreshToken", err)
	}

	// The second device's still works.
	if _, err := svc.Refresh(context.Background(), second.RefreshToken); err != nil {
		t.Errorf("Refresh() with current token error = %v", err)
	}
}

func TestService_RefreshDoesNotRotate(t *testing.T) {
	svc, _, db := testService(t)
	seedTestUser(t, db, "steady@example.com", nil)

	session, err := svc.Login(context.Background(), "steady@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Repeated refreshes with the same token keep working.
	for i := 0; i < 3; i++ {
		refreshed, err := svc.Refresh(context.Background(), session.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if refreshed.RefreshToken != session.RefreshToken {
			t.Fatal("Refresh() must not rotate the refresh token")
		}
		if refreshed.AccessToken == "" {
			t.Fatal("Refresh() should mint a new access token")
		}
	}
}

func TestService_RefreshInvalidToken(t *testing.T) {
	svc, _, _ := testService(t)

	for _, token := range []string{"", "garbage", HashRefreshToken("raw")} {
		if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Errorf("Refresh(%q) error = %v, want ErrInvalidRefreshToken", token, err)
		}
	}
}

func TestService_RefreshDeactivatedAccount(t *testing.T) {
	svc, users, db := testService(t)
	user := seedTestUser(t, db, "revoked@example.com", nil)

	session, err := svc.Login(context.Background(), "revoked@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := users.SetStatus(context.Background(), user.ID, StatusBanned); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrAccountNotActive) {
		t.Errorf("Refresh() on banned account error = %v, want ErrAccountNotActive", err)
	}
}

func TestService_LogoutIsIdempotent(t *testing.T) {
	svc, _, db := testService(t)
	user := seedTestUser(t, db, "leaver@example.com", nil)

	session, err := svc.Login(context.Background(), "leaver@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	// Second logout with an already-empty slot still succeeds.
	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("repeat Logout() error = %v", err)
	}

	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Refresh() after logout error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestService_LogoutUnknownUser(t *testing.T) {
	svc, _, _ := testService(t)

	if err := svc.Logout(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Logout() for unknown user error = %v, want ErrNotFound", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _, db := testService(t)
	user := seedTestUser(t, db, "rotate@example.com", nil)

	session, err := svc.Login(context.Background(), "rotate@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Wrong current password is rejected.
	if err := svc.ChangePassword(context.Background(), user.ID, "wrong", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangePassword() wrong current error = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "test-password", "new-password"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	// Old refresh tokens die with the old password.
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Refresh() after password change error = %v, want ErrInvalidRefreshToken", err)
	}

	// Login works with the new password only.
	if _, err := svc.Login(context.Background(), "rotate@example.com", "test-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "rotate@example.com", "new-password"); err != nil {
		t.Errorf("Login() new password error = %v", err)
	}
}

func TestService_LoginResolvesPermissions(t *testing.T) {
	svc, _, db := testService(t)
	role := seedTestRole(t, db, "staff", PermissionMap{"product": {"view"}})
	seedTestUser(t, db, "staffer@example.com", &role.ID)

	session, err := svc.Login(context.Background(), "staffer@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !session.Permissions.Allows("product", "view") {
		t.Error("session permissions should reflect the assigned role")
	}
}

func TestService_PermissionsNilRole(t *testing.T) {
	svc, _, _ := testService(t)

	p, err := svc.Permissions(context.Background(), nil)
	if err != nil {
		t.Fatalf("Permissions(nil) error = %v", err)
	}
	if len(p) != 0 {
		t.Errorf("nil role should grant nothing, got %v", p)
	}
}
