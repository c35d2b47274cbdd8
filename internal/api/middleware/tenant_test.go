package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/tenant"
)

func TestTenant_FromToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/course/1", nil)
	req = req.WithContext(domain.ContextWithIdentity(req.Context(), domain.Identity{Identifier: "a", Role: domain.RoleTeacher, TenantID: "school-1"}))
	c := e.NewContext(req, httptest.NewRecorder())

	var seen context.Context
	err := Tenant(domain.DefaultTenantID)(func(c echo.Context) error {
		seen = c.Request().Context()
		id, err := tenant.Require(seen)
		if err != nil || id != "school-1" {
			t.Fatalf("expected school-1, got %q %v", id, err)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if _, ok := tenant.FromContext(seen); ok {
		t.Fatalf("tenant must be cleared once the request ends")
	}
}

func TestTenant_DefaultForAnonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/login", nil), httptest.NewRecorder())

	err := Tenant("fallback")(func(c echo.Context) error {
		if id, _ := tenant.FromContext(c.Request().Context()); id != "fallback" {
			t.Fatalf("expected fallback tenant, got %q", id)
		}
		return errors.New("handler failed")
	})(c)
	if err == nil || err.Error() != "handler failed" {
		t.Fatalf("handler error must propagate, got %v", err)
	}
}
