package domain

import "context"

// Identity is the result of a successful credential verification and the
// subject of every issued token.
type Identity struct {
	Identifier string `json:"username"`
	Role       Role   `json:"role"`
	TenantID   string `json:"tenant_id,omitempty"`
}

type identityKey struct{}

// ContextWithIdentity attaches the authenticated caller to ctx.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
