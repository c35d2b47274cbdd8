package ports

import (
	"context"
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

type TokenIssuer interface {
	IssueAccessToken(id domain.Identity, tenantID string) (domain.SessionToken, error)
	IssueRefreshToken(id domain.Identity, tenantID string) (domain.SessionToken, error)
}

type TokenValidator interface {
	Parse(raw string) (domain.TokenClaims, error)
	ParseKind(raw string, want domain.TokenKind) (domain.TokenClaims, error)
}

// RevocationList denies individual token ids until they would have expired
// anyway.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
