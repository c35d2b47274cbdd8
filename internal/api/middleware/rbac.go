package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/api/metrics"
	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/policy"
)

// Authorize enforces the route policy on the identity Authenticate put on
// the request context.
func Authorize(pol *policy.Policy, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path, err := policyPath(c)
			if err != nil {
				return err
			}
			rule := pol.Match(path)
			if rule.Access == policy.AccessPublic {
				return next(c)
			}

			id, ok := domain.IdentityFromContext(c.Request().Context())
			if !ok {
				return domain.ErrUnauthenticated
			}

			if _, err := pol.Authorize(path, id.Role); err != nil {
				metrics.AuthzDecisionsTotal.WithLabelValues(rule.Access.String(), "deny").Inc()
				log.Warn().
					Str("username", id.Identifier).
					Str("role", string(id.Role)).
					Str("path", path).
					Str("rule", rule.Pattern).
					Msg("access denied")
				return err
			}

			metrics.AuthzDecisionsTotal.WithLabelValues(rule.Access.String(), "allow").Inc()
			return next(c)
		}
	}
}
