package handler

import (
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

// --- Service result → HTTP response ---

func toTokenResponse(r *ports.AuthResult, now time.Time) tokenResponse {
	expiresIn := r.AccessToken.ExpiresAt.Sub(now).Milliseconds()
	if expiresIn < 0 {
		expiresIn = 0
	}
	return tokenResponse{
		AccessToken:        r.AccessToken.Value,
		RefreshToken:       r.RefreshToken.Value,
		TokenType:          "Bearer",
		ExpiresIn:          expiresIn,
		ExpiresAt:          r.AccessToken.ExpiresAt.UTC(),
		Username:           r.Identity.Identifier,
		Role:               string(r.Identity.Role),
		TenantID:           r.TenantID,
		MustChangePassword: r.MustChangeSecret,
	}
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		Username:            a.Identifier,
		Role:                string(a.Role),
		RoleName:            a.Role.DisplayName(),
		TenantID:            a.TenantID,
		IsLocked:            a.IsLocked,
		IsActive:            a.IsActive,
		FailedLoginAttempts: a.FailedLoginAttempts,
		LastLoginAt:         utcPtr(a.LastLoginAt),
		PasswordChangedAt:   utcPtr(a.SecretChangedAt),
		MustChangePassword:  a.MustChangeSecret,
		CreatedAt:           a.CreatedAt.UTC(),
		UpdatedAt:           a.UpdatedAt.UTC(),
	}
}

func toAccountListResponse(accounts []*domain.Account) accountListResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return accountListResponse{Accounts: out, Total: len(out)}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
