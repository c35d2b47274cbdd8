package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/core/tenant"
)

func newAccountFixture(t *testing.T, accounts ...domain.Account) (*AccountService, *stubAccountRepo, *recordingPublisher) {
	t.Helper()
	repo := newStubAccountRepo(accounts...)
	events := &recordingPublisher{}
	svc := NewAccountService(repo, stubHasher{}, newTestVerifier(t, repo, nil), events, zerolog.Nop())
	return svc, repo, events
}

// asCaller runs fn as caller inside a request bound to tenantID.
func asCaller(t *testing.T, caller domain.Identity, tenantID string, fn func(ctx context.Context) error) error {
	t.Helper()
	ctx := domain.ContextWithIdentity(context.Background(), caller)
	return tenant.Scope(ctx, tenantID, fn)
}

var (
	superAdmin = domain.Identity{Identifier: "root", Role: domain.RoleSuperAdmin}
	schoolOne  = domain.Identity{Identifier: "head-1", Role: domain.RoleInstitutionAdmin, TenantID: "school-1"}
)

func TestAccountService_RequiresCaller(t *testing.T) {
	svc, _, _ := newAccountFixture(t)

	if _, err := svc.List(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAccountService_Create_TenantForcedForInstitutionAdmin(t *testing.T) {
	svc, repo, events := newAccountFixture(t)

	err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		_, err := svc.Create(ctx, ports.CreateAccountInput{Identifier: "teacher1", Secret: "s3cret!!", Role: domain.RoleTeacher})
		return err
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	acc := repo.get("teacher1")
	if acc.TenantID != "school-1" || acc.SecretHash != "hash:s3cret!!" {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if !events.has(domain.EventAccountCreated) {
		t.Fatalf("expected account_created event")
	}
}

func TestAccountService_Create_Forbidden(t *testing.T) {
	svc, _, _ := newAccountFixture(t)

	cases := []struct {
		name string
		in   ports.CreateAccountInput
	}{
		{"super admin role", ports.CreateAccountInput{Identifier: "someone", Secret: "s", Role: domain.RoleSuperAdmin}},
		{"foreign tenant", ports.CreateAccountInput{Identifier: "someone", Secret: "s", Role: domain.RoleTeacher, TenantID: "school-2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
				_, err := svc.Create(ctx, tc.in)
				return err
			})
			if !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAccountService_Create_InvalidRole(t *testing.T) {
	svc, _, _ := newAccountFixture(t)

	err := asCaller(t, superAdmin, "default", func(ctx context.Context) error {
		_, err := svc.Create(ctx, ports.CreateAccountInput{Identifier: "someone", Secret: "s", Role: "JANITOR"})
		return err
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAccountService_List_ScopedToTenant(t *testing.T) {
	svc, _, _ := newAccountFixture(t,
		activeAccount("a", domain.RoleTeacher, "school-1", "x"),
		activeAccount("b", domain.RoleStudent, "school-1", "x"),
		activeAccount("c", domain.RoleTeacher, "school-2", "x"),
	)

	var tenantView, globalView []*domain.Account
	_ = asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		var err error
		tenantView, err = svc.List(ctx)
		return err
	})
	_ = asCaller(t, superAdmin, "default", func(ctx context.Context) error {
		var err error
		globalView, err = svc.List(ctx)
		return err
	})

	if len(tenantView) != 2 {
		t.Fatalf("expected 2 accounts in school-1, got %d", len(tenantView))
	}
	for _, acc := range tenantView {
		if acc.TenantID != "school-1" {
			t.Fatalf("leaked account from %q", acc.TenantID)
		}
	}
	if len(globalView) != 3 {
		t.Fatalf("expected super admin to see 3 accounts, got %d", len(globalView))
	}
}

func TestAccountService_Get_ForeignTenantIsNotFound(t *testing.T) {
	svc, _, _ := newAccountFixture(t, activeAccount("c", domain.RoleTeacher, "school-2", "x"))

	err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		_, err := svc.Get(ctx, "c")
		return err
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_LockUnlock(t *testing.T) {
	acc := activeAccount("a", domain.RoleTeacher, "school-1", "x")
	acc.FailedLoginAttempts = 3
	svc, repo, events := newAccountFixture(t, acc)

	err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		return svc.Lock(ctx, "a")
	})
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if got := repo.get("a"); !got.IsLocked || got.FailedLoginAttempts != 3 {
		t.Fatalf("lock must keep the counter, got %+v", got)
	}

	err = asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		return svc.Unlock(ctx, "a")
	})
	if err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if got := repo.get("a"); got.IsLocked || got.FailedLoginAttempts != 0 {
		t.Fatalf("unlock must clear lock and counter, got %+v", got)
	}
	if !events.has(domain.EventAccountLocked) || !events.has(domain.EventAccountUnlocked) {
		t.Fatalf("expected lock and unlock events, got %v", events.types())
	}
}

func TestAccountService_ManagementRules(t *testing.T) {
	svc, _, _ := newAccountFixture(t,
		activeAccount("head-1", domain.RoleInstitutionAdmin, "school-1", "x"),
		activeAccount("root2", domain.RoleSuperAdmin, "school-1", "x"),
	)

	t.Run("own account", func(t *testing.T) {
		err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
			return svc.Deactivate(ctx, "head-1")
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("super admin target", func(t *testing.T) {
		err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
			return svc.Lock(ctx, "root2")
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestAccountService_Deactivate(t *testing.T) {
	svc, repo, _ := newAccountFixture(t, activeAccount("a", domain.RoleTeacher, "school-1", "x"))

	err := asCaller(t, superAdmin, "default", func(ctx context.Context) error {
		return svc.Deactivate(ctx, "a")
	})
	if err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if repo.get("a").IsActive {
		t.Fatalf("expected account to be inactive")
	}
}

func TestAccountService_ResetSecret(t *testing.T) {
	svc, repo, _ := newAccountFixture(t, activeAccount("a", domain.RoleTeacher, "school-1", "old"))

	err := asCaller(t, schoolOne, "school-1", func(ctx context.Context) error {
		return svc.ResetSecret(ctx, "a", "new-one")
	})
	if err != nil {
		t.Fatalf("ResetSecret returned error: %v", err)
	}
	got := repo.get("a")
	if got.SecretHash != "hash:new-one" || !got.MustChangeSecret {
		t.Fatalf("unexpected account after reset: %+v", got)
	}
}

func TestAccountService_ChangeOwnSecret(t *testing.T) {
	acc := activeAccount("a", domain.RoleStudent, "school-1", "old")
	acc.MustChangeSecret = true
	svc, repo, _ := newAccountFixture(t, acc)
	caller := domain.Identity{Identifier: "a", Role: domain.RoleStudent, TenantID: "school-1"}

	err := asCaller(t, caller, "school-1", func(ctx context.Context) error {
		return svc.ChangeOwnSecret(ctx, "wrong", "new-one")
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if repo.get("a").FailedLoginAttempts != 1 {
		t.Fatalf("a wrong current password counts as a failed attempt")
	}

	err = asCaller(t, caller, "school-1", func(ctx context.Context) error {
		return svc.ChangeOwnSecret(ctx, "old", "new-one")
	})
	if err != nil {
		t.Fatalf("ChangeOwnSecret returned error: %v", err)
	}
	got := repo.get("a")
	if got.SecretHash != "hash:new-one" || got.MustChangeSecret {
		t.Fatalf("unexpected account after change: %+v", got)
	}
}

func TestAccountService_StoreFailure(t *testing.T) {
	svc, repo, _ := newAccountFixture(t, activeAccount("a", domain.RoleTeacher, "school-1", "x"))
	repo.findErr = errors.New("socket closed")

	err := asCaller(t, superAdmin, "default", func(ctx context.Context) error {
		_, err := svc.Get(ctx, "a")
		return err
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
