package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PermissionCache caches role permission maps with a short TTL so that
// per-request permission checks do not hit the database. Expiry is lazy:
// a stale entry is simply re-fetched on the next read, there is no
// background sweeper. Role edits become visible within one TTL.
type PermissionCache struct {
	roles RoleDirectory
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[int64]permissionEntry
}

type permissionEntry struct {
	permissions PermissionMap
	cachedAt    time.Time
}

// NewPermissionCache creates a cache over the given role directory.
// A non-positive TTL falls back to 60 seconds.
func NewPermissionCache(roles RoleDirectory, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 60 * time.Second //nolint:mnd // default permission cache TTL
	}
	return &PermissionCache{
		roles:   roles,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]permissionEntry),
	}
}

// Permissions returns the permission map for a role, from cache when fresh,
// otherwise freshly loaded. A role that no longer exists caches an empty map
// so a deleted role denies everything rather than erroring on every request.
// Database failures are returned to the caller and nothing is cached, so a
// transient outage never poisons the cache.
func (c *PermissionCache) Permissions(ctx context.Context, roleID int64) (PermissionMap, error) {
	c.mu.RLock()
	entry, ok := c.entries[roleID]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.cachedAt) < c.ttl {
		return entry.permissions.Clone(), nil
	}

	role, err := c.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			c.store(roleID, PermissionMap{})
			return PermissionMap{}, nil
		}
		return nil, err
	}

	c.store(roleID, role.Permissions.Clone())
	return role.Permissions.Clone(), nil
}

// store replaces the cached entry for a role wholesale.
func (c *PermissionCache) store(roleID int64, permissions PermissionMap) {
	c.mu.Lock()
	c.entries[roleID] = permissionEntry{permissions: permissions, cachedAt: c.now()}
	c.mu.Unlock()
}
