package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// Issuer mints HS256-signed session tokens.
type Issuer struct {
	key  []byte
	opts options
}

// NewIssuer fails when key is empty or the lifetime table is inconsistent;
// both are startup errors.
func NewIssuer(key []byte, opts ...Option) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.lifetimes.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{key: key, opts: o}, nil
}

func (i *Issuer) IssueAccessToken(id domain.Identity, tenantID string) (domain.SessionToken, error) {
	return i.issue(id, tenantID, domain.TokenKindAccess)
}

func (i *Issuer) IssueRefreshToken(id domain.Identity, tenantID string) (domain.SessionToken, error) {
	return i.issue(id, tenantID, domain.TokenKindRefresh)
}

// Lifetimes returns the table the issuer was built with.
func (i *Issuer) Lifetimes() Lifetimes { return i.opts.lifetimes }

func (i *Issuer) issue(id domain.Identity, tenantID string, kind domain.TokenKind) (domain.SessionToken, error) {
	now := i.opts.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(i.opts.lifetimes.For(id.Role, kind)))

	c := sessionClaims{
		TenantID: tenantID,
		Role:     string(id.Role),
		Kind:     string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.opts.issuer,
			Subject:   id.Identifier,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return domain.SessionToken{
		Value:     signed,
		Kind:      kind,
		ID:        c.ID,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}
