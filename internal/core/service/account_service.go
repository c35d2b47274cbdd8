package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/core/tenant"
	"github.com/educationerp/erp-auth/internal/ids"
)

// AccountService is account administration scoped to the caller: a
// SUPER_ADMIN sees every account, anyone else only the accounts of the tenant
// bound to the current request. Accounts outside the caller's scope are
// reported as not found.
type AccountService struct {
	repo     ports.AccountRepository
	hasher   ports.SecretHasher
	verifier *CredentialVerifier
	events   ports.AuthEventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewAccountService(
	repo ports.AccountRepository,
	hasher ports.SecretHasher,
	verifier *CredentialVerifier,
	events ports.AuthEventPublisher,
	log zerolog.Logger,
) *AccountService {
	if events == nil {
		events = nopPublisher{}
	}
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		verifier: verifier,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// scope is the caller plus the tenant its request is bound to.
type scope struct {
	caller   domain.Identity
	tenantID string
}

func (sc scope) global() bool { return sc.caller.Role == domain.RoleSuperAdmin }

func (sc scope) sees(acc *domain.Account) bool {
	return sc.global() || (sc.tenantID != "" && acc.TenantID == sc.tenantID)
}

func (s *AccountService) scopeOf(ctx context.Context) (scope, error) {
	caller, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return scope{}, domain.ErrUnauthenticated
	}
	tenantID, _ := tenant.FromContext(ctx)
	return scope{caller: caller, tenantID: tenantID}, nil
}

func (s *AccountService) Create(ctx context.Context, in ports.CreateAccountInput) (*domain.Account, error) {
	sc, err := s.scopeOf(ctx)
	if err != nil {
		return nil, err
	}
	if !domain.ValidIdentifier(in.Identifier) || in.Secret == "" || !in.Role.Valid() {
		return nil, fmt.Errorf("%w: a valid username, a password and a valid role are required", domain.ErrInvalidInput)
	}

	tenantID := in.TenantID
	if !sc.global() {
		if in.Role == domain.RoleSuperAdmin {
			return nil, fmt.Errorf("%w: only a super admin can create super admins", domain.ErrForbidden)
		}
		if tenantID != "" && tenantID != sc.tenantID {
			return nil, fmt.Errorf("%w: foreign tenant", domain.ErrForbidden)
		}
		tenantID = sc.tenantID
	}

	hash, err := s.hasher.Hash(in.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now()
	acc, err := s.repo.Create(ctx, &domain.Account{
		ID:               ids.NewAt(now),
		Identifier:       in.Identifier,
		SecretHash:       hash,
		Role:             in.Role,
		TenantID:         tenantID,
		IsActive:         true,
		SecretChangedAt:  &now,
		MustChangeSecret: in.MustChangeSecret,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, storeErr("create account", err)
	}

	s.audit(domain.EventAccountCreated, acc, sc.caller.Identifier)
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, identifier string) (*domain.Account, error) {
	acc, _, err := s.load(ctx, identifier)
	return acc, err
}

func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	sc, err := s.scopeOf(ctx)
	if err != nil {
		return nil, err
	}
	filter := ports.AccountFilter{IncludeInactive: true}
	if !sc.global() {
		if sc.tenantID == "" {
			return nil, fmt.Errorf("%w: no tenant bound to request", domain.ErrForbidden)
		}
		filter.TenantID = sc.tenantID
	}

	accounts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	return accounts, nil
}

func (s *AccountService) Lock(ctx context.Context, identifier string) error {
	acc, sc, err := s.loadManaged(ctx, identifier)
	if err != nil {
		return err
	}
	if err := s.repo.SetLocked(ctx, identifier, true, s.now()); err != nil {
		return storeErr("lock account", err)
	}
	s.audit(domain.EventAccountLocked, acc, sc.caller.Identifier)
	return nil
}

func (s *AccountService) Unlock(ctx context.Context, identifier string) error {
	acc, sc, err := s.loadManaged(ctx, identifier)
	if err != nil {
		return err
	}
	if err := s.repo.SetLocked(ctx, identifier, false, s.now()); err != nil {
		return storeErr("unlock account", err)
	}
	s.audit(domain.EventAccountUnlocked, acc, sc.caller.Identifier)
	return nil
}

// Deactivate soft-deletes the account; it can never authenticate again.
func (s *AccountService) Deactivate(ctx context.Context, identifier string) error {
	acc, sc, err := s.loadManaged(ctx, identifier)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, identifier, s.now()); err != nil {
		return storeErr("deactivate account", err)
	}
	s.audit(domain.EventAccountDisabled, acc, sc.caller.Identifier)
	return nil
}

// ResetSecret sets a new secret that must be changed at the next login.
func (s *AccountService) ResetSecret(ctx context.Context, identifier, newSecret string) error {
	if newSecret == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	acc, sc, err := s.loadManaged(ctx, identifier)
	if err != nil {
		return err
	}
	return s.replaceSecret(ctx, acc, newSecret, true, sc.caller.Identifier)
}

func (s *AccountService) ChangeOwnSecret(ctx context.Context, currentSecret, newSecret string) error {
	sc, err := s.scopeOf(ctx)
	if err != nil {
		return err
	}
	if newSecret == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrInvalidInput)
	}
	if _, err := s.verifier.Verify(ctx, sc.caller.Identifier, currentSecret); err != nil {
		return err
	}
	acc, err := s.repo.FindByIdentifier(ctx, sc.caller.Identifier)
	if err != nil {
		return storeErr("find account", err)
	}
	return s.replaceSecret(ctx, acc, newSecret, false, "")
}

func (s *AccountService) replaceSecret(ctx context.Context, acc *domain.Account, secret string, mustChange bool, actor string) error {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.repo.UpdateSecret(ctx, acc.Identifier, hash, mustChange, s.now()); err != nil {
		return storeErr("update secret", err)
	}
	s.audit(domain.EventSecretChanged, acc, actor)
	return nil
}

func (s *AccountService) load(ctx context.Context, identifier string) (*domain.Account, scope, error) {
	sc, err := s.scopeOf(ctx)
	if err != nil {
		return nil, scope{}, err
	}
	acc, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, sc, storeErr("find account", err)
	}
	if !sc.sees(acc) {
		return nil, sc, domain.ErrAccountNotFound
	}
	return acc, sc, nil
}

// loadManaged is load plus the rules for changing someone else's account.
func (s *AccountService) loadManaged(ctx context.Context, identifier string) (*domain.Account, scope, error) {
	acc, sc, err := s.load(ctx, identifier)
	if err != nil {
		return nil, sc, err
	}
	if acc.Identifier == sc.caller.Identifier {
		return nil, sc, fmt.Errorf("%w: cannot administer own account", domain.ErrForbidden)
	}
	if acc.Role == domain.RoleSuperAdmin && !sc.global() {
		return nil, sc, fmt.Errorf("%w: super admin accounts", domain.ErrForbidden)
	}
	return acc, sc, nil
}

func (s *AccountService) audit(t domain.AuthEventType, acc *domain.Account, actor string) {
	s.log.Info().
		Str("event", string(t)).
		Str("username", acc.Identifier).
		Str("actor", actor).
		Msg("account changed")
	s.events.Publish(domain.AuthEvent{
		ID:         ids.New(),
		Type:       t,
		Identifier: acc.Identifier,
		TenantID:   acc.TenantID,
		Actor:      actor,
		OccurredAt: s.now(),
	})
}

// storeErr keeps domain outcomes and marks everything else as a store
// failure.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrAccountExists) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
