package domain

import (
	"regexp"
	"time"
)

// MaxFailedLoginAttempts is the number of consecutive failed verifications
// that locks an account.
const MaxFailedLoginAttempts = 5

// Account is the credential record of a single user. TenantID is empty for
// system-level accounts.
type Account struct {
	ID                  string     `json:"id"`
	Identifier          string     `json:"username"`
	SecretHash          string     `json:"-"`
	Role                Role       `json:"role"`
	TenantID            string     `json:"tenant_id,omitempty"`
	IsLocked            bool       `json:"is_locked"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	SecretChangedAt     *time.Time `json:"password_changed_at,omitempty"`
	MustChangeSecret    bool       `json:"must_change_password"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{2,63}$`)

// ValidIdentifier reports whether s is usable as a username: 3 to 64 letters,
// digits or any of "._@-", starting with a letter or digit. Usernames appear
// as a single path segment in the account routes.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// SystemLevel reports whether the account belongs to no tenant.
func (a *Account) SystemLevel() bool { return a.TenantID == "" }

func (a *Account) Identity() Identity {
	return Identity{Identifier: a.Identifier, Role: a.Role, TenantID: a.TenantID}
}

func (a *Account) LoginState() LoginState {
	return LoginState{FailedAttempts: a.FailedLoginAttempts, Locked: a.IsLocked}
}

func (a *Account) ApplyLoginState(s LoginState) {
	a.FailedLoginAttempts = s.FailedAttempts
	a.IsLocked = s.Locked
}

// LoginState is the part of an account the lockout rules operate on.
type LoginState struct {
	FailedAttempts int
	Locked         bool
}

// Lockout holds the login-attempt transition rules. Stores that persist the
// transitions atomically must implement the same arithmetic.
type Lockout struct {
	Threshold int
}

// NewLockout returns the rules for the given threshold, falling back to
// MaxFailedLoginAttempts when threshold is not positive.
func NewLockout(threshold int) Lockout {
	if threshold <= 0 {
		threshold = MaxFailedLoginAttempts
	}
	return Lockout{Threshold: threshold}
}

// OnFailure counts one more failed verification and locks once the
// threshold is reached. A locked account takes no further failures, so the
// counter never passes the threshold.
func (l Lockout) OnFailure(s LoginState) (LoginState, error) {
	if s.Locked {
		return s, ErrAccountLocked
	}
	s.FailedAttempts++
	if s.FailedAttempts >= l.Threshold {
		s.Locked = true
	}
	return s, nil
}

// OnSuccess resets the counter. A locked account is never verified, so the
// transition is refused from the locked state.
func (l Lockout) OnSuccess(s LoginState) (LoginState, error) {
	if s.Locked {
		return s, ErrAccountLocked
	}
	return LoginState{}, nil
}

// OnUnlock is the administrative unlock; it also clears the counter.
func (l Lockout) OnUnlock(LoginState) LoginState {
	return LoginState{}
}

// OnLock is the administrative lock; the counter is kept.
func (l Lockout) OnLock(s LoginState) LoginState {
	s.Locked = true
	return s
}
