package domain

import "errors"

// Credential failures. ErrAccountInactive and ErrAccountNotFound never leave
// the credential verifier as themselves; callers see ErrInvalidCredentials.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
)

// Token failures.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenUnsupported  = errors.New("token unsupported")
	ErrWrongTokenKind    = errors.New("wrong token kind")
	ErrTokenRevoked      = errors.New("token revoked")
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("access forbidden")
	ErrStoreUnavailable = errors.New("account store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// IsAuthFailure reports whether err should surface as a generic
// "authentication failed" response.
func IsAuthFailure(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials, ErrAccountLocked, ErrAccountInactive,
		ErrTokenExpired, ErrTokenMalformed, ErrTokenBadSignature, ErrTokenUnsupported,
		ErrWrongTokenKind, ErrTokenRevoked, ErrUnauthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
