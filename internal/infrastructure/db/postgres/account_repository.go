package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

const accountColumns = `id, identifier, password_hash, role, tenant_id, is_locked, is_active,
	failed_login_attempts, last_login_at, password_changed_at, must_change_password,
	created_at, updated_at`

// AccountRepository implements ports.AccountRepository on the accounts
// table. Login-attempt transitions are single UPDATE statements.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acc       domain.Account
		role      string
		tenantID  sql.NullString
		lastLogin sql.NullTime
		changed   sql.NullTime
	)
	err := row.Scan(
		&acc.ID, &acc.Identifier, &acc.SecretHash, &role, &tenantID, &acc.IsLocked, &acc.IsActive,
		&acc.FailedLoginAttempts, &lastLogin, &changed, &acc.MustChangeSecret,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.Role = domain.Role(role)
	acc.TenantID = tenantID.String
	acc.LastLoginAt = timePtr(lastLogin)
	acc.SecretChangedAt = timePtr(changed)
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	return &acc, nil
}

func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where identifier = $1`, identifier)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		returning `+accountColumns,
		account.ID, account.Identifier, account.SecretHash, string(account.Role), nullIfEmpty(account.TenantID),
		account.IsLocked, account.IsActive, account.FailedLoginAttempts,
		nullTime(account.LastLoginAt), nullTime(account.SecretChangedAt), account.MustChangeSecret,
		account.CreatedAt.UTC(), account.UpdatedAt.UTC(),
	)
	acc, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) List(ctx context.Context, filter ports.AccountFilter) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		select `+accountColumns+`
		from accounts
		where ($1 = '' or tenant_id = $1)
		  and ($2 or is_active)
		order by identifier`,
		filter.TenantID, filter.IncludeInactive,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *AccountRepository) RecordFailedLogin(ctx context.Context, identifier string, threshold int, at time.Time) (domain.LoginState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	threshold = domain.NewLockout(threshold).Threshold
	var state domain.LoginState
	err := r.db.QueryRowContext(ctx, `
		update accounts
		set failed_login_attempts = failed_login_attempts + 1,
		    is_locked = failed_login_attempts + 1 >= $2,
		    updated_at = $3
		where identifier = $1 and is_active and not is_locked
		returning failed_login_attempts, is_locked`,
		identifier, threshold, at.UTC(),
	).Scan(&state.FailedAttempts, &state.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LoginState{}, r.lockedOrMissing(ctx, identifier)
	}
	if err != nil {
		return domain.LoginState{}, fmt.Errorf("record failed login: %w", err)
	}
	return state, nil
}

func (r *AccountRepository) RecordSuccessfulLogin(ctx context.Context, identifier string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		update accounts
		set failed_login_attempts = 0, last_login_at = $2, updated_at = $2
		where identifier = $1 and is_active and not is_locked`,
		identifier, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.lockedOrMissing(ctx, identifier)
}

// lockedOrMissing explains why a login transition matched no row: the
// account is locked, or there is no active account by that identifier.
func (r *AccountRepository) lockedOrMissing(ctx context.Context, identifier string) error {
	var locked bool
	err := r.db.QueryRowContext(ctx, `select is_locked from accounts where identifier = $1 and is_active`, identifier).Scan(&locked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrAccountNotFound
	case err != nil:
		return fmt.Errorf("check account state: %w", err)
	case locked:
		return domain.ErrAccountLocked
	}
	return fmt.Errorf("account %q changed concurrently", identifier)
}

func (r *AccountRepository) SetLocked(ctx context.Context, identifier string, locked bool, at time.Time) error {
	return r.exec(ctx, `
		update accounts
		set is_locked = $2,
		    failed_login_attempts = case when $2 then failed_login_attempts else 0 end,
		    updated_at = $3
		where identifier = $1`,
		identifier, locked, at.UTC(),
	)
}

func (r *AccountRepository) Deactivate(ctx context.Context, identifier string, at time.Time) error {
	return r.exec(ctx, `update accounts set is_active = false, updated_at = $2 where identifier = $1`, identifier, at.UTC())
}

func (r *AccountRepository) UpdateSecret(ctx context.Context, identifier, secretHash string, mustChange bool, at time.Time) error {
	return r.exec(ctx, `
		update accounts
		set password_hash = $2, must_change_password = $3, password_changed_at = $4, updated_at = $4
		where identifier = $1`,
		identifier, secretHash, mustChange, at.UTC(),
	)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
