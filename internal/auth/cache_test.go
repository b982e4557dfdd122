package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingRoleDirectory counts GetByID calls and serves canned responses.
type countingRoleDirectory struct {
	calls int
	role  *Role
	err   error
}

func (d *countingRoleDirectory) GetByID(_ context.Context, _ int64) (*Role, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.role, nil
}

func TestPermissionCache_ServesFromCacheWithinTTL(t *testing.T) {
	dir := &countingRoleDirectory{
		role: &Role{ID: 1, Name: "staff", Permissions: PermissionMap{"product": {"view"}}},
	}
	cache := NewPermissionCache(dir, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		p, err := cache.Permissions(context.Background(), 1)
		if err != nil {
			t.Fatalf("Permissions() error = %v", err)
		}
		if !p.Allows("product", "view") {
			t.Fatal("cached map should allow product/view")
		}
	}

	if dir.calls != 1 {
		t.Errorf("directory calls = %d, want 1 (cache hit within TTL)", dir.calls)
	}
}

func TestPermissionCache_RefetchesAfterTTL(t *testing.T) {
	dir := &countingRoleDirectory{
		role: &Role{ID: 1, Name: "staff", Permissions: PermissionMap{"product": {"view"}}},
	}
	cache := NewPermissionCache(dir, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	if _, err := cache.Permissions(context.Background(), 1); err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}

	// Role is edited; entry is stale after the TTL elapses.
	dir.role = &Role{ID: 1, Name: "staff", Permissions: PermissionMap{"product": {"view", "edit"}}}
	now = now.Add(61 * time.Second)

	p, err := cache.Permissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	if !p.Allows("product", "edit") {
		t.Error("stale entry should have been refreshed with new permissions")
	}
	if dir.calls != 2 {
		t.Errorf("directory calls = %d, want 2", dir.calls)
	}
}

func TestPermissionCache_MissingRoleCachesEmpty(t *testing.T) {
	dir := &countingRoleDirectory{err: ErrRoleNotFound}
	cache := NewPermissionCache(dir, time.Minute)

	p, err := cache.Permissions(context.Background(), 99)
	if err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	if len(p) != 0 {
		t.Errorf("missing role should grant nothing, got %v", p)
	}

	// The empty grant is cached; no repeat lookups within the TTL.
	if _, err := cache.Permissions(context.Background(), 99); err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	if dir.calls != 1 {
		t.Errorf("directory calls = %d, want 1", dir.calls)
	}
}

func TestPermissionCache_ErrorsAreNotCached(t *testing.T) {
	dir := &countingRoleDirectory{err: errors.New("db down")}
	cache := NewPermissionCache(dir, time.Minute)

	if _, err := cache.Permissions(context.Background(), 1); err == nil {
		t.Fatal("Permissions() should propagate directory errors")
	}

	// Once the backend recovers the next read succeeds.
	dir.err = nil
	dir.role = &Role{ID: 1, Name: "staff", Permissions: PermissionMap{"order": {"view"}}}

	p, err := cache.Permissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("Permissions() after recovery error = %v", err)
	}
	if !p.Allows("order", "view") {
		t.Error("recovered read should serve fresh permissions")
	}
	if dir.calls != 2 {
		t.Errorf("directory calls = %d, want 2", dir.calls)
	}
}

func TestPermissionCache_ClonesEntries(t *testing.T) {
	dir := &countingRoleDirectory{
		role: &Role{ID: 1, Name: "staff", Permissions: PermissionMap{"product": {"view"}}},
	}
	cache := NewPermissionCache(dir, time.Minute)

	p, err := cache.Permissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	p["product"][0] = "edit"

	again, err := cache.Permissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	if again.Allows("product", "edit") {
		t.Error("mutating a returned map must not corrupt the cache")
	}
}
