package ports

import (
	"context"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

type LoginInput struct {
	Identifier string
	Secret     string
	TenantID   string
}

type RegisterInput struct {
	Identifier string
	Secret     string
	Role       domain.Role
	TenantID   string
}

// AuthResult is what login, registration and refresh hand back.
type AuthResult struct {
	Identity         domain.Identity
	TenantID         string
	AccessToken      domain.SessionToken
	RefreshToken     domain.SessionToken
	MustChangeSecret bool
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	// Refresh returns a new access token and the presented refresh token
	// unchanged.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	// Validate reports whether the token is currently valid.
	Validate(ctx context.Context, token string) bool
}
