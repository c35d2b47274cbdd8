package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/ids"
)

// timingSecret is hashed once at startup. Unknown identifiers are checked
// against it so they cost as much as known ones.
const timingSecret = "timing-equalizer"

// VerifiedIdentity is a successful verification.
type VerifiedIdentity struct {
	domain.Identity
	MustChangeSecret bool
}

// CredentialVerifier checks identifier/secret pairs and drives the lockout
// rules through the account store.
type CredentialVerifier struct {
	repo      ports.AccountRepository
	hasher    ports.SecretHasher
	lockout   domain.Lockout
	events    ports.AuthEventPublisher
	log       zerolog.Logger
	now       func() time.Time
	dummyHash string
}

// NewCredentialVerifier fails only if the hasher cannot hash at all.
func NewCredentialVerifier(
	repo ports.AccountRepository,
	hasher ports.SecretHasher,
	threshold int,
	events ports.AuthEventPublisher,
	log zerolog.Logger,
) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash(timingSecret)
	if err != nil {
		return nil, fmt.Errorf("credential verifier: %w", err)
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &CredentialVerifier{
		repo:      repo,
		hasher:    hasher,
		lockout:   domain.NewLockout(threshold),
		events:    events,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// Verify returns the identity behind identifier when secret matches. Unknown
// and inactive accounts fail with domain.ErrInvalidCredentials and are not
// touched; every other outcome is persisted before Verify returns. When the
// outcome cannot be persisted the result is domain.ErrStoreUnavailable.
func (v *CredentialVerifier) Verify(ctx context.Context, identifier, secret string) (VerifiedIdentity, error) {
	return v.VerifyInTenant(ctx, identifier, secret, "")
}

// VerifyInTenant is Verify for a login that names a tenant. A tenant-bound
// account asked for another tenant fails with domain.ErrInvalidCredentials
// after the secret check and before any state is written. An empty tenantID
// or a system-level account skips the check.
func (v *CredentialVerifier) VerifyInTenant(ctx context.Context, identifier, secret, tenantID string) (VerifiedIdentity, error) {
	if identifier == "" || secret == "" {
		return VerifiedIdentity{}, fmt.Errorf("%w: empty identifier or secret", domain.ErrInvalidCredentials)
	}

	// 1. Look up. Inactive is indistinguishable from absent.
	acc, err := v.repo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, domain.ErrAccountNotFound) {
		v.burn(secret)
		v.publish(domain.EventLoginFailed, identifier, "", "unknown account")
		return VerifiedIdentity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrAccountNotFound)
	}
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: find account: %w", domain.ErrStoreUnavailable, err)
	}
	if !acc.IsActive {
		v.burn(secret)
		v.publish(domain.EventLoginFailed, identifier, acc.TenantID, "inactive account")
		return VerifiedIdentity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrAccountInactive)
	}

	// 2. Locked accounts are refused before the secret is looked at.
	if acc.IsLocked {
		v.publish(domain.EventLoginFailed, identifier, acc.TenantID, "account locked")
		return VerifiedIdentity{}, domain.ErrAccountLocked
	}

	// 3. Compare.
	ok, err := v.hasher.Verify(secret, acc.SecretHash)
	if err != nil {
		v.log.Error().Err(err).Str("username", identifier).Msg("stored secret hash unusable")
		return VerifiedIdentity{}, fmt.Errorf("%w: unusable hash", domain.ErrInvalidCredentials)
	}
	if !ok {
		return VerifiedIdentity{}, v.recordFailure(ctx, acc)
	}

	// 4. A correct secret for the wrong tenant changes nothing.
	if tenantID != "" && !acc.SystemLevel() && tenantID != acc.TenantID {
		v.log.Warn().
			Str("username", identifier).
			Str("requested_tenant", tenantID).
			Msg("login for foreign tenant refused")
		v.publish(domain.EventLoginFailed, identifier, acc.TenantID, "tenant mismatch")
		return VerifiedIdentity{}, fmt.Errorf("%w: tenant mismatch", domain.ErrInvalidCredentials)
	}

	// 5. Success resets the counter, unless a concurrent request locked the
	// account in between.
	if err := v.repo.RecordSuccessfulLogin(ctx, identifier, v.now()); err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountLocked):
			v.publish(domain.EventLoginFailed, identifier, acc.TenantID, "account locked")
			return VerifiedIdentity{}, domain.ErrAccountLocked
		case errors.Is(err, domain.ErrAccountNotFound):
			return VerifiedIdentity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
		default:
			return VerifiedIdentity{}, fmt.Errorf("%w: record login: %w", domain.ErrStoreUnavailable, err)
		}
	}

	v.publish(domain.EventLoginSucceeded, identifier, acc.TenantID, "")
	return VerifiedIdentity{Identity: acc.Identity(), MustChangeSecret: acc.MustChangeSecret}, nil
}

func (v *CredentialVerifier) recordFailure(ctx context.Context, acc *domain.Account) error {
	state, err := v.repo.RecordFailedLogin(ctx, acc.Identifier, v.lockout.Threshold, v.now())
	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		// Locked by a concurrent request after the lookup.
		v.publish(domain.EventLoginFailed, acc.Identifier, acc.TenantID, "account locked")
		return domain.ErrAccountLocked
	case errors.Is(err, domain.ErrAccountNotFound):
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	case err != nil:
		return fmt.Errorf("%w: record failed login: %w", domain.ErrStoreUnavailable, err)
	}

	v.publish(domain.EventLoginFailed, acc.Identifier, acc.TenantID, "wrong secret")
	if state.Locked && state.FailedAttempts == v.lockout.Threshold {
		v.log.Warn().
			Str("username", acc.Identifier).
			Int("failed_attempts", state.FailedAttempts).
			Msg("account locked after repeated failed logins")
		v.publish(domain.EventAccountLocked, acc.Identifier, acc.TenantID, "too many failed logins")
	}
	return fmt.Errorf("%w: attempt %d of %d", domain.ErrInvalidCredentials, state.FailedAttempts, v.lockout.Threshold)
}

func (v *CredentialVerifier) burn(secret string) {
	_, _ = v.hasher.Verify(secret, v.dummyHash)
}

func (v *CredentialVerifier) publish(t domain.AuthEventType, identifier, tenantID, reason string) {
	v.events.Publish(domain.AuthEvent{
		ID:         ids.New(),
		Type:       t,
		Identifier: identifier,
		TenantID:   tenantID,
		Reason:     reason,
		OccurredAt: v.now(),
	})
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.AuthEvent) {}
