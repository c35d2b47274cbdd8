package token

import (
	"fmt"
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// Lifetimes is the token lifetime table, indexed by token kind and whether
// the role is read-only.
type Lifetimes struct {
	Access          time.Duration
	Refresh         time.Duration
	ReadOnlyAccess  time.Duration
	ReadOnlyRefresh time.Duration
}

func DefaultLifetimes() Lifetimes {
	return Lifetimes{
		Access:          30 * time.Minute,
		Refresh:         24 * time.Hour,
		ReadOnlyAccess:  24 * time.Hour,
		ReadOnlyRefresh: 30 * 24 * time.Hour,
	}
}

// For returns the lifetime of a token of kind minted for role.
func (l Lifetimes) For(role domain.Role, kind domain.TokenKind) time.Duration {
	switch {
	case kind == domain.TokenKindRefresh && role.ReadOnly():
		return l.ReadOnlyRefresh
	case kind == domain.TokenKindRefresh:
		return l.Refresh
	case role.ReadOnly():
		return l.ReadOnlyAccess
	default:
		return l.Access
	}
}

// Validate checks that every lifetime is positive and that read-only roles
// get strictly longer sessions than the others.
func (l Lifetimes) Validate() error {
	for name, d := range map[string]time.Duration{
		"access": l.Access, "refresh": l.Refresh,
		"read-only access": l.ReadOnlyAccess, "read-only refresh": l.ReadOnlyRefresh,
	} {
		if d <= 0 {
			return fmt.Errorf("token: %s lifetime must be positive, got %s", name, d)
		}
	}
	if l.ReadOnlyAccess <= l.Access {
		return fmt.Errorf("token: read-only access lifetime %s must exceed %s", l.ReadOnlyAccess, l.Access)
	}
	if l.ReadOnlyRefresh <= l.Refresh {
		return fmt.Errorf("token: read-only refresh lifetime %s must exceed %s", l.ReadOnlyRefresh, l.Refresh)
	}
	if l.Refresh < l.Access {
		return fmt.Errorf("token: refresh lifetime %s is shorter than access lifetime %s", l.Refresh, l.Access)
	}
	return nil
}
