package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/core/tenant"
	"github.com/educationerp/erp-auth/internal/ids"
)

// AuthConfig holds the behavioural switches of AuthService.
type AuthConfig struct {
	// DefaultTenant is used for system-level accounts that name no tenant.
	DefaultTenant string
	// RecheckOnRefresh makes Refresh reload the account and refuse locked,
	// inactive or deleted accounts before minting a new access token.
	RecheckOnRefresh bool
	// SelfRegisterRoles are the roles Register accepts.
	SelfRegisterRoles []domain.Role
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		DefaultTenant:     domain.DefaultTenantID,
		RecheckOnRefresh:  true,
		SelfRegisterRoles: []domain.Role{domain.RoleStudent, domain.RoleParent},
	}
}

// AuthOption sets an optional collaborator of AuthService.
type AuthOption func(*AuthService)

// WithRevocationList makes Logout revoke the presented token and Refresh and
// Validate honour revocations. Without it logout is advisory.
func WithRevocationList(r ports.RevocationList) AuthOption {
	return func(s *AuthService) { s.revoked = r }
}

func WithEventPublisher(p ports.AuthEventPublisher) AuthOption {
	return func(s *AuthService) {
		if p != nil {
			s.events = p
		}
	}
}

// AuthService implements login, registration, refresh, logout and validate.
type AuthService struct {
	verifier  *CredentialVerifier
	repo      ports.AccountRepository
	hasher    ports.SecretHasher
	issuer    ports.TokenIssuer
	validator ports.TokenValidator
	revoked   ports.RevocationList
	events    ports.AuthEventPublisher
	cfg       AuthConfig
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	verifier *CredentialVerifier,
	repo ports.AccountRepository,
	hasher ports.SecretHasher,
	issuer ports.TokenIssuer,
	validator ports.TokenValidator,
	cfg AuthConfig,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	if cfg.DefaultTenant == "" {
		cfg.DefaultTenant = domain.DefaultTenantID
	}
	s := &AuthService{
		verifier:  verifier,
		repo:      repo,
		hasher:    hasher,
		issuer:    issuer,
		validator: validator,
		events:    nopPublisher{},
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	verified, err := s.verifier.VerifyInTenant(ctx, in.Identifier, in.Secret, in.TenantID)
	if err != nil {
		return nil, err
	}

	tenantID := s.loginTenant(verified.Identity, in.TenantID)
	res, err := s.issuePair(verified.Identity, tenantID)
	if err != nil {
		return nil, err
	}
	res.MustChangeSecret = verified.MustChangeSecret

	s.log.Info().
		Str("username", verified.Identifier).
		Str("role", string(verified.Role)).
		Str("tenant_id", tenantID).
		Msg("login succeeded")
	return res, nil
}

// Register creates an account with one of the self-service roles and logs
// it in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if !domain.ValidIdentifier(in.Identifier) || in.Secret == "" {
		return nil, fmt.Errorf("%w: a valid username and a password are required", domain.ErrInvalidInput)
	}
	if !slices.Contains(s.cfg.SelfRegisterRoles, in.Role) {
		return nil, fmt.Errorf("%w: role %q cannot self-register", domain.ErrInvalidInput, in.Role)
	}

	hash, err := s.hasher.Hash(in.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now()
	acc, err := s.repo.Create(ctx, &domain.Account{
		ID:              ids.NewAt(now),
		Identifier:      in.Identifier,
		SecretHash:      hash,
		Role:            in.Role,
		TenantID:        tenant.Resolve(in.TenantID, s.cfg.DefaultTenant),
		IsActive:        true,
		SecretChangedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create account: %w", domain.ErrStoreUnavailable, err)
	}

	s.publish(domain.EventAccountCreated, acc.Identifier, acc.TenantID, "", "self registration")
	return s.issuePair(acc.Identity(), acc.TenantID)
}

// Refresh mints a new access token from a refresh token. The refresh token
// itself is handed back unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	claims, err := s.validator.ParseKind(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	id := claims.Identity()
	if s.cfg.RecheckOnRefresh {
		if id, err = s.recheck(ctx, claims); err != nil {
			return nil, err
		}
	}

	access, err := s.issuer.IssueAccessToken(id, claims.TenantID)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventTokenRefreshed, id.Identifier, claims.TenantID, "", "")
	return &ports.AuthResult{
		Identity:    id,
		TenantID:    claims.TenantID,
		AccessToken: access,
		RefreshToken: domain.SessionToken{
			Value:     refreshToken,
			Kind:      domain.TokenKindRefresh,
			ID:        claims.ID,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: claims.ExpiresAt,
		},
	}, nil
}

// Logout accepts a valid access token. With a revocation list the token is
// denied from now on; without one the call is only recorded.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.validator.ParseKind(accessToken, domain.TokenKindAccess)
	if err != nil {
		return err
	}

	if s.revoked != nil {
		if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
			return fmt.Errorf("%w: revoke token: %w", domain.ErrStoreUnavailable, err)
		}
	}

	s.log.Info().
		Str("username", claims.Subject).
		Str("tenant_id", claims.TenantID).
		Bool("revoked", s.revoked != nil).
		Msg("logout")
	s.publish(domain.EventLoggedOut, claims.Subject, claims.TenantID, "", "")
	return nil
}

// Validate reports whether token has a valid signature, has not expired and
// has not been revoked.
func (s *AuthService) Validate(ctx context.Context, token string) bool {
	claims, err := s.validator.Parse(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("token rejected by validate")
		return false
	}
	return s.checkRevoked(ctx, claims.ID) == nil
}

// loginTenant picks the tenant a login session is bound to. Tenant accounts
// are always bound to their own tenant; system-level accounts may choose.
// loginTenant is the tenant a verified login is bound to. The verifier has
// already refused a tenant-bound account asking for another tenant.
func (s *AuthService) loginTenant(id domain.Identity, requested string) string {
	if id.TenantID == "" {
		return tenant.Resolve(requested, s.cfg.DefaultTenant)
	}
	return id.TenantID
}

func (s *AuthService) recheck(ctx context.Context, claims domain.TokenClaims) (domain.Identity, error) {
	acc, err := s.repo.FindByIdentifier(ctx, claims.Subject)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	case err != nil:
		return domain.Identity{}, fmt.Errorf("%w: find account: %w", domain.ErrStoreUnavailable, err)
	case !acc.IsActive:
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrAccountInactive)
	case acc.IsLocked:
		return domain.Identity{}, domain.ErrAccountLocked
	case acc.TenantID != "" && acc.TenantID != claims.TenantID:
		return domain.Identity{}, fmt.Errorf("%w: tenant changed", domain.ErrInvalidCredentials)
	}
	return acc.Identity(), nil
}

func (s *AuthService) checkRevoked(ctx context.Context, tokenID string) error {
	if s.revoked == nil || tokenID == "" {
		return nil
	}
	revoked, err := s.revoked.IsRevoked(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("%w: revocation lookup: %w", domain.ErrStoreUnavailable, err)
	}
	if revoked {
		return domain.ErrTokenRevoked
	}
	return nil
}

func (s *AuthService) issuePair(id domain.Identity, tenantID string) (*ports.AuthResult, error) {
	access, err := s.issuer.IssueAccessToken(id, tenantID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(id, tenantID)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{
		Identity:     id,
		TenantID:     tenantID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *AuthService) publish(t domain.AuthEventType, identifier, tenantID, actor, reason string) {
	s.events.Publish(domain.AuthEvent{
		ID:         ids.New(),
		Type:       t,
		Identifier: identifier,
		TenantID:   tenantID,
		Actor:      actor,
		Reason:     reason,
		OccurredAt: s.now(),
	})
}
