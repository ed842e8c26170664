// ABOUTME: Route authorization policy evaluated after the authentication pipeline
// ABOUTME: Ordered first-match rules mapping method+path to a required role or public

package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Role is a capability tag gating access to a route. The wire representation
// of roles in token claims is free-form strings; at the policy boundary only
// the closed set below is accepted.
type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleManager  Role = "ROLE_MANAGER"
	RoleCustomer Role = "ROLE_CUSTOMER"
)

// ValidRoles lists all roles a user can be granted.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleCustomer}

// ParseRole validates a role string against the known role set.
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles {
		if s == string(r) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsValidRole reports whether s names a known role.
func IsValidRole(s string) bool {
	_, err := ParseRole(s)
	return err == nil
}

type access int

const (
	accessPublic access = iota
	accessAuthenticated
	accessRole
)

// Rule maps a method and path pattern to an access requirement.
// An empty method matches every method. A pattern ending in "/" matches by
// prefix; any other pattern matches the path exactly.
type Rule struct {
	Method  string
	Pattern string

	access access
	role   Role
}

// Public builds a rule that requires no identity.
func Public(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessPublic}
}

// Authenticated builds a rule that requires any authenticated identity.
func Authenticated(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessAuthenticated}
}

// RequireRole builds a rule that requires the given role.
func RequireRole(method, pattern string, role Role) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessRole, role: role}
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Pattern, "/") {
		return strings.HasPrefix(path, r.Pattern)
	}
	return path == r.Pattern
}

// Policy is an ordered rule list evaluated top-to-bottom, first match wins.
// Anything not matched by an explicit rule requires some authenticated
// identity (the catch-all).
type Policy struct {
	rules []Rule
}

// NewPolicy creates a policy from the given rules, preserving order.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// DefaultPolicy returns the route policy for the cafe-gateway API:
// auth endpoints and health are public, the three dashboards are gated by
// their roles, and everything else requires an authenticated identity.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Public(http.MethodPost, "/auth/api/register"),
		Public(http.MethodPost, "/auth/api/login"),
		Public(http.MethodPost, "/auth/api/logout"),
		Public(http.MethodGet, "/health"),
		RequireRole("", "/admin/", RoleAdmin),
		RequireRole("", "/manager/", RoleManager),
		RequireRole("", "/customer/", RoleCustomer),
		Authenticated(http.MethodGet, "/auth/me"),
	)
}

// Middleware returns an HTTP middleware enforcing the policy. It must run
// after the authentication pipeline has had its chance to populate the
// security context. Rejections are 401 when no identity is present and 403
// when the identity lacks the required role.
func (p *Policy) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With("component", "authz")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())

			for _, rule := range p.rules {
				if !rule.matches(r.Method, r.URL.Path) {
					continue
				}
				switch rule.access {
				case accessPublic:
					next.ServeHTTP(w, r)
				case accessAuthenticated:
					p.requireIdentity(w, r, next, identity, log)
				case accessRole:
					p.requireRole(w, r, next, identity, rule.role, log)
				}
				return
			}

			// Catch-all: anything unmatched requires an authenticated identity.
			p.requireIdentity(w, r, next, identity, log)
		})
	}
}

func (p *Policy) requireIdentity(w http.ResponseWriter, r *http.Request, next http.Handler, identity *Identity, log *slog.Logger) {
	if identity == nil {
		log.Debug("rejecting unauthenticated request", "method", r.Method, "path", r.URL.Path)
		writeAuthError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	next.ServeHTTP(w, r)
}

func (p *Policy) requireRole(w http.ResponseWriter, r *http.Request, next http.Handler, identity *Identity, role Role, log *slog.Logger) {
	if identity == nil {
		log.Debug("rejecting unauthenticated request", "method", r.Method, "path", r.URL.Path)
		writeAuthError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !identity.HasAuthority(string(role)) {
		log.Debug("rejecting request lacking role",
			"method", r.Method, "path", r.URL.Path,
			"username", identity.Username, "required_role", string(role))
		writeAuthError(w, http.StatusForbidden, "insufficient role")
		return
	}
	next.ServeHTTP(w, r)
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
