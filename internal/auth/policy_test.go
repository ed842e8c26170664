// ABOUTME: Tests for the route authorization policy
// ABOUTME: Covers rule ordering, the 401/403 split, and the catch-all

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func policyRequest(t *testing.T, p *Policy, method, path string, identity *Identity) int {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, path, nil)
	if identity != nil {
		req = req.WithContext(WithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	p.Middleware(discardLogger())(handler).ServeHTTP(rec, req)
	return rec.Code
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "ROLE_ADMIN", want: RoleAdmin},
		{input: "ROLE_MANAGER", want: RoleManager},
		{input: "ROLE_CUSTOMER", want: RoleCustomer},
		{input: "ROLE_SUPERUSER", wantErr: true},
		{input: "admin", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRole(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPolicy_PublicRule(t *testing.T) {
	p := DefaultPolicy()

	if code := policyRequest(t, p, http.MethodPost, "/auth/api/login", nil); code != http.StatusOK {
		t.Errorf("POST /auth/api/login anonymous = %d, want 200", code)
	}
	if code := policyRequest(t, p, http.MethodGet, "/health", nil); code != http.StatusOK {
		t.Errorf("GET /health anonymous = %d, want 200", code)
	}
}

func TestPolicy_ExactRuleBeatsCatchAll(t *testing.T) {
	p := DefaultPolicy()

	// Same path, different method: the public rule is method-scoped.
	if code := policyRequest(t, p, http.MethodGet, "/auth/api/login", nil); code != http.StatusUnauthorized {
		t.Errorf("GET /auth/api/login anonymous = %d, want 401 via catch-all", code)
	}
}

func TestPolicy_RoleRule(t *testing.T) {
	p := DefaultPolicy()
	admin := &Identity{Username: "root", Authorities: []string{"ROLE_ADMIN"}}
	customer := &Identity{Username: "alice", Authorities: []string{"ROLE_CUSTOMER"}}

	tests := []struct {
		name     string
		path     string
		identity *Identity
		want     int
	}{
		{name: "admin area anonymous", path: "/admin/users", identity: nil, want: http.StatusUnauthorized},
		{name: "admin area wrong role", path: "/admin/users", identity: customer, want: http.StatusForbidden},
		{name: "admin area right role", path: "/admin/users", identity: admin, want: http.StatusOK},
		{name: "manager area customer", path: "/manager/dashboard", identity: customer, want: http.StatusForbidden},
		{name: "customer area customer", path: "/customer/dashboard", identity: customer, want: http.StatusOK},
		{name: "admin area nested path", path: "/admin/users/123", identity: admin, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := policyRequest(t, p, http.MethodGet, tt.path, tt.identity); code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, code, tt.want)
			}
		})
	}
}

func TestPolicy_MultiRoleIdentity(t *testing.T) {
	p := DefaultPolicy()
	both := &Identity{Username: "root", Authorities: []string{"ROLE_ADMIN", "ROLE_MANAGER"}}

	if code := policyRequest(t, p, http.MethodGet, "/admin/users", both); code != http.StatusOK {
		t.Errorf("admin area with dual role = %d, want 200", code)
	}
	if code := policyRequest(t, p, http.MethodGet, "/manager/dashboard", both); code != http.StatusOK {
		t.Errorf("manager area with dual role = %d, want 200", code)
	}
}

func TestPolicy_CatchAll(t *testing.T) {
	p := DefaultPolicy()
	customer := &Identity{Username: "alice", Authorities: []string{"ROLE_CUSTOMER"}}

	if code := policyRequest(t, p, http.MethodGet, "/some/unlisted/path", nil); code != http.StatusUnauthorized {
		t.Errorf("unlisted path anonymous = %d, want 401", code)
	}
	// Any authenticated identity passes the catch-all, regardless of role.
	if code := policyRequest(t, p, http.MethodGet, "/some/unlisted/path", customer); code != http.StatusOK {
		t.Errorf("unlisted path authenticated = %d, want 200", code)
	}
}

func TestPolicy_AuthenticatedRule(t *testing.T) {
	p := DefaultPolicy()
	customer := &Identity{Username: "alice", Authorities: []string{"ROLE_CUSTOMER"}}

	if code := policyRequest(t, p, http.MethodGet, "/auth/me", nil); code != http.StatusUnauthorized {
		t.Errorf("GET /auth/me anonymous = %d, want 401", code)
	}
	if code := policyRequest(t, p, http.MethodGet, "/auth/me", customer); code != http.StatusOK {
		t.Errorf("GET /auth/me authenticated = %d, want 200", code)
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	// An earlier public rule shadows a later role rule for the same path.
	p := NewPolicy(
		Public(http.MethodGet, "/admin/status"),
		RequireRole("", "/admin/", RoleAdmin),
	)

	if code := policyRequest(t, p, http.MethodGet, "/admin/status", nil); code != http.StatusOK {
		t.Errorf("shadowed path = %d, want 200 from the earlier rule", code)
	}
	if code := policyRequest(t, p, http.MethodGet, "/admin/other", nil); code != http.StatusUnauthorized {
		t.Errorf("prefix path = %d, want 401 from the role rule", code)
	}
}
