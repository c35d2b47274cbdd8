package ports

import (
	"context"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

type CreateAccountInput struct {
	Identifier       string
	Secret           string
	Role             domain.Role
	TenantID         string
	MustChangeSecret bool
}

// AccountService is account administration. Every method scopes its work
// to the caller found on ctx and the tenant of the current request.
type AccountService interface {
	Create(ctx context.Context, in CreateAccountInput) (*domain.Account, error)
	Get(ctx context.Context, identifier string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Lock(ctx context.Context, identifier string) error
	Unlock(ctx context.Context, identifier string) error
	Deactivate(ctx context.Context, identifier string) error
	ResetSecret(ctx context.Context, identifier, newSecret string) error
	// ChangeOwnSecret verifies currentSecret like a login before replacing it.
	ChangeOwnSecret(ctx context.Context, currentSecret, newSecret string) error
}
