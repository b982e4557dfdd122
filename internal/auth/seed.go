package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// seedAdminEmail is the address of the bootstrap administrator account.
const seedAdminEmail = "admin@shoplane.local"

// adminRoleName is the name of the bootstrap administrator role.
const adminRoleName = "admin"

// adminPermissions is the permission map granted to the bootstrap role.
// It covers the platform's management surface; storefront modules are added
// by administrators as they are brought online.
var adminPermissions = PermissionMap{
	"user":    {"view", "create", "edit", "delete"},
	"role":    {"view", "create", "edit"},
	"audit":   {"view"},
	"product": {"view", "create", "edit", "delete"},
	"order":   {"view", "edit"},
}

// SeedAdmin creates the initial administrator account and role on first boot
// if no users exist. The generated password is logged once and must be
// changed immediately. Returns the generated password (empty if seeding was
// skipped).
func SeedAdmin(ctx context.Context, users UserStore, roles RoleStore, hasher *PasswordHasher, logger *slog.Logger) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	role, err := roles.GetByName(ctx, adminRoleName)
	if errors.Is(err, ErrRoleNotFound) {
		role = &Role{Name: adminRoleName, Permissions: adminPermissions.Clone()}
		if err := roles.Create(ctx, role); err != nil {
			return "", fmt.Errorf("creating seed role: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("looking up seed role: %w", err)
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &Identity{
		Email:        seedAdminEmail,
		PasswordHash: hash,
		RoleID:       &role.ID,
		Status:       StatusActive,
	}

	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", seedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
