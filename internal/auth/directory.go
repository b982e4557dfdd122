package auth

import "context"

// UserDirectory is the narrow view of user persistence the session service
// needs. The full UserStore interface satisfies it.
type UserDirectory interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id int64) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*Identity, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error
}

// RoleDirectory is the narrow view of role persistence the permission cache
// needs. The full RoleStore interface satisfies it.
type RoleDirectory interface {
	GetByID(ctx context.Context, id int64) (*Role, error)
}

// UserStore is the complete user persistence contract, used by the admin API
// and the seed routine in addition to the session service.
type UserStore interface {
	UserDirectory
	List(ctx context.Context) ([]Identity, error)
	Update(ctx context.Context, identity *Identity) error
	SetStatus(ctx context.Context, id int64, status Status) error
	SoftDelete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// RoleStore is the complete role persistence contract.
type RoleStore interface {
	RoleDirectory
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
	Create(ctx context.Context, role *Role) error
	SetPermissions(ctx context.Context, id int64, permissions PermissionMap) error
}
