package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

func TestHealth_Liveness(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/health/live", "")
	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealth_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error {
		return errors.New("dial tcp redis.internal:6379: connection refused")
	}

	t.Run("healthy", func(t *testing.T) {
		h := NewHealthDependenciesHandler(map[string]Check{"accounts": ok}, domain.TenantSharedSchema, zerolog.Nop())
		c, rec := newJSONContext(http.MethodGet, "/health/ready", "")
		if err := h.Readiness(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		var resp readinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if rec.Code != http.StatusOK || resp.TenantType != "SHARED_SCHEMA" {
			t.Fatalf("unexpected response %d %+v", rec.Code, resp)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewHealthDependenciesHandler(map[string]Check{"accounts": ok, "redis": down}, domain.TenantSharedSchema, zerolog.Nop())
		c, rec := newJSONContext(http.MethodGet, "/health/ready", "")
		if err := h.Readiness(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		var resp readinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if rec.Code != http.StatusServiceUnavailable || resp.Dependencies["redis"].Status != "unhealthy" {
			t.Fatalf("unexpected response %d %+v", rec.Code, resp)
		}
		if body := rec.Body.String(); strings.Contains(body, "redis.internal") || strings.Contains(body, "refused") {
			t.Fatalf("dependency error leaked to the client: %s", body)
		}
	})
}
