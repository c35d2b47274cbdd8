package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/ids"
)

// SeedAccount describes an account created at startup when absent.
type SeedAccount struct {
	Identifier string
	Role       domain.Role
	TenantID   string
}

// DemoAccounts is the development data set: one system administrator and a
// teacher and a student in the default tenant.
func DemoAccounts() []SeedAccount {
	return []SeedAccount{
		{Identifier: "admin", Role: domain.RoleSuperAdmin},
		{Identifier: "teacher", Role: domain.RoleTeacher, TenantID: domain.DefaultTenantID},
		{Identifier: "student", Role: domain.RoleStudent, TenantID: domain.DefaultTenantID},
	}
}

// SeedAccounts creates the given accounts with secret, flagged to change it
// at first login. Existing accounts are left alone. It returns how many
// accounts were created.
func SeedAccounts(
	ctx context.Context,
	repo ports.AccountRepository,
	hasher ports.SecretHasher,
	secret string,
	accounts []SeedAccount,
	log zerolog.Logger,
) (int, error) {
	if secret == "" {
		return 0, fmt.Errorf("%w: seed password is empty", domain.ErrInvalidInput)
	}

	created := 0
	for _, sa := range accounts {
		hash, err := hasher.Hash(secret)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", sa.Identifier, err)
		}
		now := time.Now().UTC()
		_, err = repo.Create(ctx, &domain.Account{
			ID:               ids.NewAt(now),
			Identifier:       sa.Identifier,
			SecretHash:       hash,
			Role:             sa.Role,
			TenantID:         sa.TenantID,
			IsActive:         true,
			MustChangeSecret: true,
			SecretChangedAt:  &now,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if errors.Is(err, domain.ErrAccountExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", sa.Identifier, err)
		}
		created++
		log.Info().Str("username", sa.Identifier).Str("role", string(sa.Role)).Msg("seeded account")
	}
	return created, nil
}
