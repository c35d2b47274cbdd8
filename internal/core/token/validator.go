package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// maxIssuedAtSkew tolerates clock drift between replicas.
const maxIssuedAtSkew = 5 * time.Second

// Validator verifies session tokens. It never consults the account store.
type Validator struct {
	key    []byte
	opts   options
	parser *jwt.Parser
}

func NewValidator(key []byte, opts ...Option) (*Validator, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	// Expiry is checked below against the injected clock, after the
	// signature has been verified.
	return &Validator{
		key:    key,
		opts:   o,
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}, nil
}

// Parse verifies the signature, then the claims, then expiry. An expired
// token is returned together with its claims and domain.ErrTokenExpired.
func (v *Validator) Parse(raw string) (domain.TokenClaims, error) {
	var c sessionClaims
	if _, err := v.parser.ParseWithClaims(raw, &c, v.keyFunc); err != nil {
		return domain.TokenClaims{}, classify(err)
	}

	kind := domain.TokenKind(c.Kind)
	if !kind.Valid() {
		return domain.TokenClaims{}, fmt.Errorf("%w: token type %q", domain.ErrTokenUnsupported, c.Kind)
	}
	if c.Issuer != v.opts.issuer {
		return domain.TokenClaims{}, fmt.Errorf("%w: issuer %q", domain.ErrTokenUnsupported, c.Issuer)
	}
	role := domain.Role(c.Role)
	if c.Subject == "" || !role.Valid() || c.ExpiresAt == nil || c.IssuedAt == nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: incomplete claims", domain.ErrTokenMalformed)
	}

	out := domain.TokenClaims{
		ID:        c.ID,
		Subject:   c.Subject,
		TenantID:  c.TenantID,
		Role:      role,
		Kind:      kind,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}

	now := v.opts.now()
	if out.IssuedAt.After(now.Add(maxIssuedAtSkew)) {
		return domain.TokenClaims{}, fmt.Errorf("%w: issued in the future", domain.ErrTokenMalformed)
	}
	if out.IsExpired(now) {
		return out, domain.ErrTokenExpired
	}
	return out, nil
}

// ParseKind is Parse plus a check that the token is of the expected kind.
func (v *Validator) ParseKind(raw string, want domain.TokenKind) (domain.TokenClaims, error) {
	c, err := v.Parse(raw)
	if err != nil {
		return c, err
	}
	if c.Kind != want {
		return domain.TokenClaims{}, fmt.Errorf("%w: got %s, want %s", domain.ErrWrongTokenKind, c.Kind, want)
	}
	return c, nil
}

// IsExpired evaluates expiry against the validator's clock.
func (v *Validator) IsExpired(c domain.TokenClaims) bool {
	return c.IsExpired(v.opts.now())
}

func (v *Validator) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: %s", errUnsupportedAlg, t.Method.Alg())
	}
	return v.key, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenUnsupported, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", domain.ErrTokenBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
