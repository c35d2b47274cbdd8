package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/api/metrics"
	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/policy"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

// Context keys set on echo.Context for authenticated requests.
const (
	UsernameKey = "username"
	RoleKey     = "role"
	TenantKey   = "tenant_id"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Authenticate validates the access token of every request whose route is
// not public and injects the caller identity into the request context.
// revocations may be nil.
func Authenticate(pol *policy.Policy, validator ports.TokenValidator, revocations ports.RevocationList, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route, err := policyPath(c)
			if err != nil {
				return err
			}
			if pol.Match(route).Access == policy.AccessPublic {
				return next(c)
			}

			raw, ok := BearerToken(req)
			if !ok {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
			}

			claims, err := validator.ParseKind(raw, domain.TokenKindAccess)
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
				return err
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(req.Context(), claims.ID)
				if err != nil {
					metrics.TokenRejectionsTotal.WithLabelValues("error").Inc()
					return fmt.Errorf("%w: revocation lookup: %w", domain.ErrStoreUnavailable, err)
				}
				if revoked {
					metrics.TokenRejectionsTotal.WithLabelValues("revoked").Inc()
					return domain.ErrTokenRevoked
				}
			}

			id := claims.Identity()
			c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))
			c.Set(UsernameKey, id.Identifier)
			c.Set(RoleKey, string(id.Role))
			c.Set(TenantKey, id.TenantID)

			log.Debug().
				Str("username", id.Identifier).
				Str("role", string(id.Role)).
				Str("path", req.URL.Path).
				Msg("request authenticated")
			return next(c)
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, domain.ErrTokenUnsupported):
		return "unsupported"
	case errors.Is(err, domain.ErrWrongTokenKind):
		return "wrong_kind"
	default:
		return "error"
	}
}
