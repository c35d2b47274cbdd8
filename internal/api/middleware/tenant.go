package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/tenant"
)

// Tenant binds the request to the tenant named in the caller's token, or to
// defaultTenant for anonymous and system-level callers. The binding is
// cleared when the handler returns.
func Tenant(defaultTenant string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id, _ := domain.IdentityFromContext(req.Context())
			tenantID := tenant.Resolve(id.TenantID, defaultTenant)

			return tenant.Scope(req.Context(), tenantID, func(ctx context.Context) error {
				c.SetRequest(req.WithContext(ctx))
				c.Set(TenantKey, tenantID)
				return next(c)
			})
		}
	}
}
