package auth

import "context"

type identityContextKey string

const identityKey identityContextKey = "admin_identity"

// Identity is the authenticated admin attached to a request context.
type Identity struct {
	UserID string
	SID    string
	Role   string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
