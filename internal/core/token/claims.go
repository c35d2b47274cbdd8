package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is the iss claim of every token unless overridden.
const DefaultIssuer = "education-erp"

// ErrMissingKey is returned by the constructors when no signing key is
// configured.
var ErrMissingKey = errors.New("token: signing key is empty")

var errUnsupportedAlg = errors.New("unsupported signing algorithm")

// sessionClaims is the wire form of a session token.
type sessionClaims struct {
	TenantID string `json:"tenantId,omitempty"`
	Role     string `json:"role"`
	Kind     string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Option configures an Issuer or a Validator.
type Option func(*options)

type options struct {
	issuer    string
	lifetimes Lifetimes
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		issuer:    DefaultIssuer,
		lifetimes: DefaultLifetimes(),
		now:       time.Now,
	}
}

func WithIssuer(iss string) Option {
	return func(o *options) {
		if iss != "" {
			o.issuer = iss
		}
	}
}

// WithLifetimes replaces the lifetime table. Only the Issuer reads it.
func WithLifetimes(l Lifetimes) Option {
	return func(o *options) { o.lifetimes = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
