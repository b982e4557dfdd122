package auth

import "context"

// IdentityContext is the authenticated caller attached to a request context
// by the authentication middleware. It carries only what downstream handlers
// need; the full account record stays in the database.
type IdentityContext struct {
	ID     int64
	Email  string
	RoleID *int64
	Claims *AccessClaims
}

type contextKey struct{}

// ContextWithIdentity attaches the authenticated identity to a context.
func ContextWithIdentity(ctx context.Context, identity *IdentityContext) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*IdentityContext, bool) {
	identity, ok := ctx.Value(contextKey{}).(*IdentityContext)
	return identity, ok && identity != nil
}
