package ports

import (
	"context"
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// AccountFilter narrows List. An empty TenantID lists every tenant.
type AccountFilter struct {
	TenantID        string
	IncludeInactive bool
}

// AccountRepository persists accounts. Each login-attempt transition is a
// single atomic operation in the store, never a read-modify-write.
type AccountRepository interface {
	// FindByIdentifier returns domain.ErrAccountNotFound when absent.
	// Inactive accounts are returned; callers decide what inactive means.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	// Create returns domain.ErrAccountExists on a duplicate identifier.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*domain.Account, error)

	// RecordFailedLogin applies domain.Lockout.OnFailure to an active
	// account and returns the resulting state. An account that is already
	// locked is left untouched and domain.ErrAccountLocked is returned.
	RecordFailedLogin(ctx context.Context, identifier string, threshold int, at time.Time) (domain.LoginState, error)
	// RecordSuccessfulLogin resets the counter and stamps the last login.
	// It only applies to an active, unlocked account and returns
	// domain.ErrAccountLocked otherwise.
	RecordSuccessfulLogin(ctx context.Context, identifier string, at time.Time) error

	// SetLocked is the administrative lock/unlock. Unlocking clears the
	// failed-attempt counter.
	SetLocked(ctx context.Context, identifier string, locked bool, at time.Time) error
	// Deactivate is the soft delete.
	Deactivate(ctx context.Context, identifier string, at time.Time) error
	UpdateSecret(ctx context.Context, identifier, secretHash string, mustChange bool, at time.Time) error
}
