package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/policy"
	"github.com/educationerp/erp-auth/internal/core/token"
)

var testKey = []byte("middleware-test-key-middleware-test-key")

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) Revoke(context.Context, string, time.Time) error { return nil }

func (s stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return s.revoked[id], s.err
}

func issue(t *testing.T, role domain.Role, tenantID string, kind domain.TokenKind) domain.SessionToken {
	t.Helper()
	iss, err := token.NewIssuer(testKey)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	id := domain.Identity{Identifier: "alice", Role: role, TenantID: tenantID}
	var tok domain.SessionToken
	if kind == domain.TokenKindRefresh {
		tok, err = iss.IssueRefreshToken(id, tenantID)
	} else {
		tok, err = iss.IssueAccessToken(id, tenantID)
	}
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func newValidator(t *testing.T) *token.Validator {
	t.Helper()
	v, err := token.NewValidator(testKey)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func runAuth(t *testing.T, path, authHeader string, revocations stubRevocations, next echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	mw := Authenticate(policy.Default(), newValidator(t), revocations, zerolog.Nop())
	return mw(next)(c)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tok := issue(t, domain.RoleTeacher, "school-1", domain.TokenKindAccess)

	called := false
	err := runAuth(t, "/api/teacher/classes", "Bearer "+tok.Value, stubRevocations{}, func(c echo.Context) error {
		called = true
		id, ok := domain.IdentityFromContext(c.Request().Context())
		if !ok {
			t.Fatalf("identity not on request context")
		}
		if id.Identifier != "alice" || id.Role != domain.RoleTeacher || id.TenantID != "school-1" {
			t.Fatalf("unexpected identity: %+v", id)
		}
		if c.Get(RoleKey) != "TEACHER" || c.Get(TenantKey) != "school-1" {
			t.Fatalf("echo context values not set")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestAuthenticate_PublicRouteSkipsToken(t *testing.T) {
	called := false
	err := runAuth(t, "/api/auth/login", "", stubRevocations{}, func(c echo.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("public route must pass without token, err=%v called=%v", err, called)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	access := issue(t, domain.RoleTeacher, "school-1", domain.TokenKindAccess)
	refresh := issue(t, domain.RoleTeacher, "school-1", domain.TokenKindRefresh)

	cases := []struct {
		name   string
		header string
		revs   stubRevocations
		want   error
	}{
		{"missing header", "", stubRevocations{}, domain.ErrUnauthenticated},
		{"wrong scheme", "Token abc", stubRevocations{}, domain.ErrUnauthenticated},
		{"garbage", "Bearer not-a-token", stubRevocations{}, domain.ErrTokenMalformed},
		{"refresh token", "Bearer " + refresh.Value, stubRevocations{}, domain.ErrWrongTokenKind},
		{"revoked", "Bearer " + access.Value, stubRevocations{revoked: map[string]bool{access.ID: true}}, domain.ErrTokenRevoked},
		{"revocation store down", "Bearer " + access.Value, stubRevocations{err: errors.New("down")}, domain.ErrStoreUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := runAuth(t, "/api/teacher/classes", tc.header, tc.revs, func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer  abc ")
	if tok, ok := BearerToken(req); !ok || tok != "abc" {
		t.Fatalf("expected abc, got %q %v", tok, ok)
	}

	req.Header.Set("Authorization", "Bearer ")
	if _, ok := BearerToken(req); ok {
		t.Fatalf("empty bearer must be rejected")
	}
}
