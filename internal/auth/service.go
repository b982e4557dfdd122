package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/shoplane/shoplane-core/internal/infrastructure/logging"
)

// dummyHash is a valid bcrypt hash of a random throwaway value. Login runs a
// compare against it when the email is unknown so the response time does not
// reveal whether an account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service implements the session lifecycle: register, login, refresh, logout
// and identity lookup. It owns no HTTP concerns; handlers translate its
// sentinel errors into status codes.
type Service struct {
	users  UserDirectory
	roles  RoleDirectory
	hasher *PasswordHasher
	codec  *TokenCodec
	cache  *PermissionCache
	logger *logging.Logger
}

// NewService wires a session service from its collaborators.
func NewService(users UserDirectory, roles RoleDirectory, hasher *PasswordHasher, codec *TokenCodec, cache *PermissionCache, logger *logging.Logger) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		hasher: hasher,
		codec:  codec,
		cache:  cache,
		logger: logger,
	}
}

// Register creates a new active account with the given credentials. The email
// is normalised and validated; a duplicate returns ErrEmailExists. New
// accounts carry no role until an administrator assigns one.
func (s *Service) Register(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidCredentials)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Email:        email,
		PasswordHash: hash,
		Status:       StatusActive,
	}
	if err := s.users.Create(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "user_id", identity.ID)
	return identity, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller. A correct login on an
// inactive or banned account returns ErrAccountNotActive. The new refresh
// token replaces whatever was in the account's slot, so logging in on one
// device invalidates the refresh token held by another.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	identity, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a compare anyway to keep timing uniform.
			s.hasher.Compare(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Compare(identity.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !identity.CanHoldSession() {
		return nil, ErrAccountNotActive
	}

	secret, err := GenerateRefreshSecret()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshTokenHash(ctx, identity.ID, &secret.Hash); err != nil {
		return nil, err
	}
	identity.RefreshTokenHash = &secret.Hash

	access, err := s.codec.Sign(identity)
	if err != nil {
		return nil, err
	}

	// Login reads the role directly so a fresh session never starts on a
	// stale cache entry.
	permissions, err := s.freshPermissions(ctx, identity.RoleID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login", "user_id", identity.ID)
	return &Session{
		AccessToken:  access,
		RefreshToken: secret.Raw,
		Identity:     identity,
		Permissions:  permissions,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is not rotated; it stays valid until the next login,
// logout or password change replaces the slot. An account that has been
// deactivated since the token was issued gets ErrAccountNotActive.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	hash := HashRefreshToken(rawToken)
	identity, err := s.users.GetByRefreshTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if identity.RefreshTokenHash == nil || !RefreshHashEqual(*identity.RefreshTokenHash, hash) {
		return nil, ErrInvalidRefreshToken
	}

	if !identity.CanHoldSession() {
		return nil, ErrAccountNotActive
	}

	access, err := s.codec.Sign(identity)
	if err != nil {
		return nil, err
	}

	permissions, err := s.resolvePermissions(ctx, identity.RoleID)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: rawToken,
		Identity:     identity,
		Permissions:  permissions,
	}, nil
}

// Logout clears the account's refresh token slot. Logging out an account
// whose slot is already empty succeeds; a missing account is ErrNotFound.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.users.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		return err
	}
	s.logger.Info("logout", "user_id", userID)
	return nil
}

// GetIdentity loads the current account record for an authenticated user.
func (s *Service) GetIdentity(ctx context.Context, userID int64) (*Identity, error) {
	return s.users.GetByID(ctx, userID)
}

// ChangePassword verifies the current password before setting a new one, and
// clears the refresh slot so stolen refresh tokens die with the old password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	identity, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Compare(identity.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if next == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.users.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// Permissions resolves the effective permission map for a role reference.
// A nil role grants nothing.
func (s *Service) Permissions(ctx context.Context, roleID *int64) (PermissionMap, error) {
	return s.resolvePermissions(ctx, roleID)
}

func (s *Service) resolvePermissions(ctx context.Context, roleID *int64) (PermissionMap, error) {
	if roleID == nil {
		return PermissionMap{}, nil
	}
	return s.cache.Permissions(ctx, *roleID)
}

// freshPermissions loads a role's permission map from the directory,
// bypassing the cache. A missing role grants nothing.
func (s *Service) freshPermissions(ctx context.Context, roleID *int64) (PermissionMap, error) {
	if roleID == nil {
		return PermissionMap{}, nil
	}
	role, err := s.roles.GetByID(ctx, *roleID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return PermissionMap{}, nil
		}
		return nil, err
	}
	return role.Permissions.Clone(), nil
}
