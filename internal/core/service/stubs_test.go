package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/core/token"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account

	findErr    error
	createErr  error
	failErr    error
	successErr error

	failCalls    int
	successCalls int
}

func newStubAccountRepo(accounts ...domain.Account) *stubAccountRepo {
	r := &stubAccountRepo{accounts: make(map[string]*domain.Account)}
	for i := range accounts {
		acc := accounts[i]
		r.accounts[acc.Identifier] = &acc
	}
	return r
}

func (r *stubAccountRepo) get(identifier string) domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.accounts[identifier]
}

func (r *stubAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	acc, ok := r.accounts[identifier]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *acc
	return &c, nil
}

func (r *stubAccountRepo) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.accounts[account.Identifier]; ok {
		return nil, domain.ErrAccountExists
	}
	c := *account
	r.accounts[account.Identifier] = &c
	out := c
	return &out, nil
}

func (r *stubAccountRepo) List(_ context.Context, filter ports.AccountFilter) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, acc := range r.accounts {
		if filter.TenantID != "" && acc.TenantID != filter.TenantID {
			continue
		}
		c := *acc
		out = append(out, &c)
	}
	return out, nil
}

func (r *stubAccountRepo) RecordFailedLogin(_ context.Context, identifier string, threshold int, at time.Time) (domain.LoginState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCalls++
	if r.failErr != nil {
		return domain.LoginState{}, r.failErr
	}
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

func (r *stubAccountRepo) RecordSuccessfulLogin(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successCalls++
	if r.successErr != nil {
		return r.successErr
	}
	acc := r.accounts[identifier]
	next, err := domain.Lockout{}.OnSuccess(acc.LoginState())
	if err != nil {
		return err
	}
	acc.ApplyLoginState(next)
	acc.LastLoginAt = &at
	return nil
}

func (r *stubAccountRepo) SetLocked(_ context.Context, identifier string, locked bool, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if locked {
		acc.ApplyLoginState(domain.Lockout{}.OnLock(acc.LoginState()))
	} else {
		acc.ApplyLoginState(domain.Lockout{}.OnUnlock(acc.LoginState()))
	}
	return nil
}

func (r *stubAccountRepo) Deactivate(_ context.Context, identifier string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.IsActive = false
	return nil
}

func (r *stubAccountRepo) UpdateSecret(_ context.Context, identifier, hash string, mustChange bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[identifier]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.SecretHash = hash
	acc.MustChangeSecret = mustChange
	acc.SecretChangedAt = &at
	return nil
}

// stubHasher is a transparent, fast stand-in for a slow hash.
type stubHasher struct{}

func (stubHasher) Hash(secret string) (string, error) { return "hash:" + secret, nil }

func (stubHasher) Verify(secret, hash string) (bool, error) {
	return strings.TrimPrefix(hash, "hash:") == secret, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *recordingPublisher) Publish(e domain.AuthEvent) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) has(t domain.AuthEventType) bool {
	for _, got := range p.types() {
		if got == t {
			return true
		}
	}
	return false
}

type stubRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newStubRevocationList() *stubRevocationList {
	return &stubRevocationList{revoked: make(map[string]time.Time)}
}

func (s *stubRevocationList) Revoke(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.revoked[id] = until
	return nil
}

func (s *stubRevocationList) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.revoked[id]
	return ok, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var testSigningKey = []byte("test-signing-key-test-signing-key")

func activeAccount(identifier string, role domain.Role, tenantID, secret string) domain.Account {
	return domain.Account{
		ID:         "id-" + identifier,
		Identifier: identifier,
		SecretHash: "hash:" + secret,
		Role:       role,
		TenantID:   tenantID,
		IsActive:   true,
	}
}

func newTestVerifier(t *testing.T, repo ports.AccountRepository, events ports.AuthEventPublisher) *CredentialVerifier {
	t.Helper()
	v, err := NewCredentialVerifier(repo, stubHasher{}, domain.MaxFailedLoginAttempts, events, zerolog.Nop())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func newTestTokens(t *testing.T) (*token.Issuer, *token.Validator) {
	t.Helper()
	iss, err := token.NewIssuer(testSigningKey)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	val, err := token.NewValidator(testSigningKey)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return iss, val
}
