// Package memory is an in-process account store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

// AccountRepository keeps accounts in a map guarded by one mutex, which
// makes every transition atomic.
type AccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepository) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return clone(acc), nil
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Identifier]; exists {
		return nil, domain.ErrAccountExists
	}
	r.accounts[account.Identifier] = clone(account)
	return clone(account), nil
}

func (r *AccountRepository) List(_ context.Context, filter ports.AccountFilter) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		if filter.TenantID != "" && acc.TenantID != filter.TenantID {
			continue
		}
		if !filter.IncludeInactive && !acc.IsActive {
			continue
		}
		out = append(out, clone(acc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (r *AccountRepository) RecordFailedLogin(_ context.Context, identifier string, threshold int, at time.Time) (domain.LoginState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok || !acc.IsActive {
		return domain.LoginState{}, domain.ErrAccountNotFound
	}
	next, err := domain.NewLockout(threshold).OnFailure(acc.LoginState())
	if err != nil {
		return acc.LoginState(), err
	}
	acc.ApplyLoginState(next)
	acc.UpdatedAt = at
	return acc.LoginState(), nil
}

func (r *AccountRepository) RecordSuccessfulLogin(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok || !acc.IsActive {
		return domain.ErrAccountNotFound
	}
	next, err := domain.Lockout{}.OnSuccess(acc.LoginState())
	if err != nil {
		return err
	}
	acc.ApplyLoginState(next)
	acc.LastLoginAt = &at
	acc.UpdatedAt = at
	return nil
}

func (r *AccountRepository) SetLocked(_ context.Context, identifier string, locked bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	var l domain.Lockout
	if locked {
		acc.ApplyLoginState(l.OnLock(acc.LoginState()))
	} else {
		acc.ApplyLoginState(l.OnUnlock(acc.LoginState()))
	}
	acc.UpdatedAt = at
	return nil
}

func (r *AccountRepository) Deactivate(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.IsActive = false
	acc.UpdatedAt = at
	return nil
}

func (r *AccountRepository) UpdateSecret(_ context.Context, identifier, secretHash string, mustChange bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.SecretHash = secretHash
	acc.MustChangeSecret = mustChange
	acc.SecretChangedAt = &at
	acc.UpdatedAt = at
	return nil
}

func clone(a *domain.Account) *domain.Account {
	c := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	if a.SecretChangedAt != nil {
		t := *a.SecretChangedAt
		c.SecretChangedAt = &t
	}
	return &c
}
