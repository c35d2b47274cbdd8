package domain

import "time"

// TokenKind separates short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// SessionToken is a signed token as handed to the client.
type SessionToken struct {
	Value     string
	Kind      TokenKind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	ID        string
	Subject   string
	TenantID  string
	Role      Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports expiresAt < now.
func (c TokenClaims) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

func (c TokenClaims) Identity() Identity {
	return Identity{Identifier: c.Subject, Role: c.Role, TenantID: c.TenantID}
}
