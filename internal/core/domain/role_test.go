package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_ReadOnly(t *testing.T) {
	for _, r := range AllRoles() {
		want := r == RoleReportViewer || r == RoleParent
		assert.Equal(t, want, r.ReadOnly(), r.String())
		assert.True(t, r.Valid())
		assert.NotEmpty(t, r.DisplayName())
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" teacher ")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	_, err = ParseRole("janitor")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(ErrTokenExpired))
	assert.True(t, IsAuthFailure(ErrAccountLocked))
	assert.False(t, IsAuthFailure(ErrForbidden))
	assert.False(t, IsAuthFailure(ErrStoreUnavailable))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := Identity{Identifier: "bob", Role: RoleParent}
	got, ok := IdentityFromContext(ContextWithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}
