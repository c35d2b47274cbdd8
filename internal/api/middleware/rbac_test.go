package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/policy"
)

func runAuthorize(t *testing.T, path string, id *domain.Identity) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if id != nil {
		req = req.WithContext(domain.ContextWithIdentity(req.Context(), *id))
	}
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	mw := Authorize(policy.Default(), zerolog.Nop())
	err := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return called, err
}

func TestAuthorize_Allows(t *testing.T) {
	id := domain.Identity{Identifier: "acc", Role: domain.RoleAccountant, TenantID: "t"}
	called, err := runAuthorize(t, "/api/payment/invoices", &id)
	if err != nil || !called {
		t.Fatalf("expected pass, err=%v called=%v", err, called)
	}
}

func TestAuthorize_Forbidden(t *testing.T) {
	id := domain.Identity{Identifier: "kid", Role: domain.RoleStudent, TenantID: "t"}
	called, err := runAuthorize(t, "/api/payment/invoices", &id)
	if called {
		t.Fatalf("next handler must not be called")
	}
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthorize_OwnProfileForAnyRole(t *testing.T) {
	id := domain.Identity{Identifier: "kid", Role: domain.RoleStudent, TenantID: "t"}
	if called, err := runAuthorize(t, "/api/users/me", &id); err != nil || !called {
		t.Fatalf("expected /api/users/me to pass, err=%v", err)
	}
	if _, err := runAuthorize(t, "/api/users/bob", &id); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on user admin, got %v", err)
	}
}

func TestAuthorize_MissingIdentity(t *testing.T) {
	if _, err := runAuthorize(t, "/api/course/1", nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if called, err := runAuthorize(t, "/health/live", nil); err != nil || !called {
		t.Fatalf("public route must pass, err=%v", err)
	}
}

func TestAuthorize_MatchesRouteTemplate(t *testing.T) {
	e := echo.New()
	id := domain.Identity{Identifier: "t1", Role: domain.RoleTeacher, TenantID: "t"}
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(domain.ContextWithIdentity(req.Context(), id))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/users/:username")

	called := false
	err := Authorize(policy.Default(), zerolog.Nop())(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if called || !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("the routed template must decide, got called=%v err=%v", called, err)
	}
}

func TestAuthorize_RejectsNonCanonicalPaths(t *testing.T) {
	id := domain.Identity{Identifier: "t1", Role: domain.RoleTeacher, TenantID: "t"}
	for _, target := range []string{
		"/api/users/student%2F..%2Fme",
		"/api/users/student/../me",
		"/api//users/me",
		"/api/users/%6De",
	} {
		called, err := runAuthorize(t, target, &id)
		var he *echo.HTTPError
		if called || !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 before the handler, got called=%v err=%v", target, called, err)
		}
	}
}
