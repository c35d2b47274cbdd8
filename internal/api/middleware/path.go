package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// policyPath is the path the route policy is evaluated against: the route
// template echo dispatched to, or the request path when nothing matched.
// Requests whose path is not in canonical form are refused, so the policy
// and the router always read the same path.
func policyPath(c echo.Context) (string, error) {
	u := c.Request().URL
	if !canonicalPath(u) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request path")
	}
	if route := c.Path(); route != "" {
		return route, nil
	}
	return u.Path, nil
}

// canonicalPath rejects escaped forms that decode differently (such as %2F),
// dot segments and repeated slashes. A single trailing slash is allowed.
func canonicalPath(u *url.URL) bool {
	if u.RawPath != "" {
		return false
	}
	p := u.Path
	if p == "" || p == "/" {
		return true
	}
	if !strings.HasPrefix(p, "/") {
		return false
	}
	return path.Clean(p) == strings.TrimSuffix(p, "/")
}
