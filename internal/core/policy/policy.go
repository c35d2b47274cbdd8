// Package policy holds the route authorization table: one ordered list of
// (path pattern, access) rules, evaluated most specific first.
//
// A pattern ending in "/**" covers the prefix itself and everything below it
// on segment boundaries ("/api/admin/**" matches "/api/admin" and
// "/api/admin/users" but not "/api/administrator"). Any other pattern matches
// one path exactly. Paths no rule covers require an authenticated caller.
package policy

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// Access is what a rule demands from the caller.
type Access int

const (
	// AccessAuthenticated admits any caller holding a valid access token.
	AccessAuthenticated Access = iota
	// AccessPublic skips authentication entirely.
	AccessPublic
	// AccessRoles admits only the listed roles.
	AccessRoles
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessRoles:
		return "roles"
	default:
		return "authenticated"
	}
}

// Rule binds a path pattern to an access requirement.
type Rule struct {
	Pattern string
	Access  Access
	Roles   []domain.Role

	prefix  string
	subtree bool
	allowed map[domain.Role]struct{}
}

// Public returns one public rule per pattern.
func Public(patterns ...string) []Rule {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, Rule{Pattern: p, Access: AccessPublic})
	}
	return rules
}

// Authenticated returns a rule admitting any authenticated caller.
func Authenticated(pattern string) Rule {
	return Rule{Pattern: pattern, Access: AccessAuthenticated}
}

// Allow returns a rule admitting only the given roles.
func Allow(pattern string, roles ...domain.Role) Rule {
	return Rule{Pattern: pattern, Access: AccessRoles, Roles: roles}
}

// Permits reports whether role satisfies the rule. Public and authenticated
// rules permit every role.
func (r Rule) Permits(role domain.Role) bool {
	if r.Access != AccessRoles {
		return true
	}
	_, ok := r.allowed[role]
	return ok
}

func (r Rule) matches(p string) bool {
	if !r.subtree {
		return p == r.prefix
	}
	if r.prefix == "/" {
		return true
	}
	return p == r.prefix || strings.HasPrefix(p, r.prefix+"/")
}

func (r Rule) depth() int {
	if r.prefix == "/" {
		return 0
	}
	return strings.Count(r.prefix, "/")
}

func compile(r Rule) (Rule, error) {
	p := r.Pattern
	if !strings.HasPrefix(p, "/") {
		return Rule{}, fmt.Errorf("policy: pattern %q must start with /", p)
	}
	if strings.HasSuffix(p, "/**") {
		r.subtree = true
		p = strings.TrimSuffix(p, "/**")
		if p == "" {
			p = "/"
		}
	}
	if strings.Contains(p, "*") {
		return Rule{}, fmt.Errorf("policy: pattern %q: wildcard only allowed as trailing /**", r.Pattern)
	}
	r.prefix = path.Clean(p)

	if r.Access == AccessRoles {
		if len(r.Roles) == 0 {
			return Rule{}, fmt.Errorf("policy: pattern %q lists no roles", r.Pattern)
		}
		r.allowed = make(map[domain.Role]struct{}, len(r.Roles))
		for _, role := range r.Roles {
			if !role.Valid() {
				return Rule{}, fmt.Errorf("policy: pattern %q: unknown role %q", r.Pattern, role)
			}
			r.allowed[role] = struct{}{}
		}
	}
	return r, nil
}

// Policy is an immutable, ordered rule table. It is safe for concurrent use.
type Policy struct {
	rules    []Rule
	fallback Rule
}

// New compiles rules and orders them by specificity: deeper prefixes first,
// and an exact pattern before a subtree pattern on the same prefix. Rules of
// equal specificity keep their given order.
func New(rules ...Rule) (*Policy, error) {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		c, err := compile(r)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i], compiled[j]
		if a.depth() != b.depth() {
			return a.depth() > b.depth()
		}
		if a.prefix == b.prefix && a.subtree != b.subtree {
			return !a.subtree
		}
		return false
	})

	return &Policy{
		rules:    compiled,
		fallback: Rule{Pattern: "/**", Access: AccessAuthenticated, prefix: "/", subtree: true},
	}, nil
}

// MustNew is New for static tables; it panics on an invalid rule.
func MustNew(rules ...Rule) *Policy {
	p, err := New(rules...)
	if err != nil {
		panic(err)
	}
	return p
}

// Match returns the first rule covering requestPath, or the authenticated
// fallback.
func (p *Policy) Match(requestPath string) Rule {
	clean := normalize(requestPath)
	for _, r := range p.rules {
		if r.matches(clean) {
			return r
		}
	}
	return p.fallback
}

// Authorize returns the matched rule, and domain.ErrForbidden when the rule
// lists roles and role is not among them.
func (p *Policy) Authorize(requestPath string, role domain.Role) (Rule, error) {
	r := p.Match(requestPath)
	if !r.Permits(role) {
		return r, fmt.Errorf("%w: role %s on %s", domain.ErrForbidden, role, r.Pattern)
	}
	return r, nil
}

// Rules returns the table in evaluation order.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
