package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockout_FiveFailuresLock(t *testing.T) {
	l := NewLockout(MaxFailedLoginAttempts)
	s := LoginState{}

	var err error
	for i := 1; i < MaxFailedLoginAttempts; i++ {
		s, err = l.OnFailure(s)
		require.NoError(t, err)
		assert.Equal(t, i, s.FailedAttempts)
		assert.False(t, s.Locked, "locked after %d failures", i)
	}

	s, err = l.OnFailure(s)
	require.NoError(t, err)
	assert.Equal(t, MaxFailedLoginAttempts, s.FailedAttempts)
	assert.True(t, s.Locked)

	after, err := l.OnSuccess(s)
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, s, after, "state must not change on a refused success")
}

func TestLockout_SuccessResetsFromEveryCount(t *testing.T) {
	l := NewLockout(0)
	for n := 0; n < MaxFailedLoginAttempts; n++ {
		s, err := l.OnSuccess(LoginState{FailedAttempts: n})
		require.NoError(t, err)
		assert.Equal(t, 0, s.FailedAttempts, "prior count %d", n)
		assert.False(t, s.Locked)
	}
}

func TestLockout_FourthToFifth(t *testing.T) {
	l := NewLockout(5)
	s, err := l.OnFailure(LoginState{FailedAttempts: 4})
	require.NoError(t, err)
	assert.Equal(t, LoginState{FailedAttempts: 5, Locked: true}, s)
}

func TestLockout_FailureOnLockedIsRefused(t *testing.T) {
	l := NewLockout(5)

	for _, locked := range []LoginState{{FailedAttempts: 5, Locked: true}, {FailedAttempts: 2, Locked: true}} {
		s, err := l.OnFailure(locked)
		require.ErrorIs(t, err, ErrAccountLocked)
		assert.Equal(t, locked, s, "counter must not move past the lock")
	}
}

func TestLockout_AdminTransitions(t *testing.T) {
	l := NewLockout(5)

	locked := l.OnLock(LoginState{FailedAttempts: 2})
	assert.Equal(t, LoginState{FailedAttempts: 2, Locked: true}, locked)

	unlocked := l.OnUnlock(LoginState{FailedAttempts: 5, Locked: true})
	assert.Equal(t, LoginState{}, unlocked)
}

func TestValidIdentifier(t *testing.T) {
	for _, ok := range []string{"ana", "teacher.01", "j_doe-2", "ana@school.edu"} {
		assert.True(t, ValidIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "me", "..", "...", "a/b", "student/../me", "a b", ".hidden", "josé", strings.Repeat("a", 65)} {
		assert.False(t, ValidIdentifier(bad), bad)
	}
}

func TestAccount_ApplyLoginState(t *testing.T) {
	a := &Account{Identifier: "alice", Role: RoleTeacher, TenantID: "school-1", IsActive: true}
	s, err := NewLockout(5).OnFailure(a.LoginState())
	require.NoError(t, err)
	a.ApplyLoginState(s)

	assert.Equal(t, 1, a.FailedLoginAttempts)
	assert.False(t, a.IsLocked)
	assert.Equal(t, Identity{Identifier: "alice", Role: RoleTeacher, TenantID: "school-1"}, a.Identity())
	assert.False(t, a.SystemLevel())
}
