package auth

import (
	"errors"
	"strings"
	"time"
)

// Status represents the lifecycle state of an identity.
type Status string

const (
	// StatusActive identities may log in and hold sessions.
	StatusActive Status = "active"

	// StatusInactive identities are temporarily disabled (e.g. pending
	// verification or suspended by an administrator).
	StatusInactive Status = "inactive"

	// StatusBanned identities are permanently locked out.
	StatusBanned Status = "banned"
)

// ValidStatuses is the set of statuses an identity may hold.
var ValidStatuses = []Status{StatusActive, StatusInactive, StatusBanned}

// IsValidStatus returns true if s is a recognised identity status.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Identity represents a user account as seen by the auth core.
//
// Password and refresh-token hashes are never serialised.
type Identity struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	RoleID           *int64     `json:"role_id,omitempty"`
	Status           Status     `json:"status"`
	RefreshTokenHash *string    `json:"-"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CanHoldSession reports whether the identity is allowed to hold a valid
// session. Only active, non-deleted identities qualify; this is enforced at
// login, at refresh, and on every authenticated request when active-status
// enforcement is on.
func (i *Identity) CanHoldSession() bool {
	return i.Status == StatusActive && i.DeletedAt == nil
}

// Role groups a named permission map. Roles are owned by the role directory;
// the auth core only ever reads them.
type Role struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Permissions PermissionMap `json:"permissions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Session is the result of a successful login or registration.
//
// RefreshToken carries the raw refresh secret. It is returned to the caller
// exactly once and never persisted or logged.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Identity     *Identity     `json:"identity"`
	Permissions  PermissionMap `json:"permissions"`
}

// NormalizeEmail trims surrounding whitespace and lowercases an email
// address. All lookups and stored values use the normalised form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs a minimal shape check on an already-normalised email.
// Full RFC validation is deliberately out of scope; the unique index on the
// users table is the real guard.
func IsValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers must not be able to probe for account existence.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrAccountNotActive    = errors.New("account is not active")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrNotFound            = errors.New("identity not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrEmailExists         = errors.New("email already registered")
	ErrHashingFailed       = errors.New("password hashing failed")
)
