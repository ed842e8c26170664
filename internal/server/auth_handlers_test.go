// ABOUTME: End-to-end tests for the auth endpoints through the full handler chain
// ABOUTME: Covers login, logout, registration, and the current-user endpoint

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cafeworks/cafe-gateway/internal/auth"
	"github.com/cafeworks/cafe-gateway/internal/config"
	"github.com/cafeworks/cafe-gateway/internal/store"
)

const testJWTSecret = "server-test-secret-key-0123456789ab"

func newTestServer(t *testing.T) (*Server, *store.MockStore) {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: "unused"},
		Auth: config.AuthConfig{
			JWTSecret: testJWTSecret,
			TokenTTL:  24 * time.Hour,
		},
	}

	users := store.NewMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(cfg, users, logger)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, users
}

func seedUser(t *testing.T, users *store.MockStore, username, password string, roles ...string) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	err = users.CreateUser(context.Background(), &store.User{
		ID:           "id-" + username,
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
		Enabled:      true,
	})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
}

func doRequest(t *testing.T, s *Server, method, path, body string, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if mod != nil {
		mod(req)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", name)
	return nil
}

func TestLogin_Success(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	rec := doRequest(t, s, http.MethodPost, "/auth/api/login",
		`{"username":"alice","password":"latte-art"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	token, ok := body["token"].(string)
	if !ok || token == "" {
		t.Fatalf("response has no token: %v", body)
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("token subject = %q, want alice", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "ROLE_CUSTOMER" {
		t.Errorf("token roles = %v, want [ROLE_CUSTOMER]", claims.Roles)
	}
}

func TestLogin_SetsHTTPOnlyCookie(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	rec := doRequest(t, s, http.MethodPost, "/auth/api/login",
		`{"username":"alice","password":"latte-art"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", rec.Code)
	}

	cookie := findCookie(t, rec, auth.TokenCookieName)
	if !cookie.HttpOnly {
		t.Error("cookie is not HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge != 86400 {
		t.Errorf("cookie max-age = %d, want 86400", cookie.MaxAge)
	}
	if cookie.Value == "" {
		t.Error("cookie value is empty")
	}
}

func TestLogin_GenericRejection(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username":"alice","password":"espresso"}`},
		{"unknown user", `{"username":"mallory","password":"espresso"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/auth/api/login", tt.body, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["error"] != "invalid username or password" {
				t.Errorf("error = %v, want the generic rejection", body["error"])
			}
		})
	}
}

func TestLogin_BadBody(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/api/login", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogout_ClearsCookieButTokenSurvives(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	token, err := s.codec.Issue("alice", []string{"ROLE_CUSTOMER"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	rec := doRequest(t, s, http.MethodPost, "/auth/api/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", rec.Code)
	}

	setCookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, auth.TokenCookieName+"=") {
		t.Errorf("Set-Cookie %q does not clear the token cookie", setCookie)
	}
	if !strings.Contains(setCookie, "Max-Age=0") {
		t.Errorf("Set-Cookie %q does not expire immediately", setCookie)
	}

	// Logout is client-side only; a previously issued token keeps working.
	rec = doRequest(t, s, http.MethodGet, "/auth/me", "", withBearer(token))
	if rec.Code != http.StatusOK {
		t.Errorf("/auth/me after logout = %d, want 200", rec.Code)
	}
}

func TestRegister_DefaultRole(t *testing.T) {
	s, users := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/api/register",
		`{"username":"bob","password":"flat-white"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	user, err := users.GetUserByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "ROLE_CUSTOMER" {
		t.Errorf("roles = %v, want [ROLE_CUSTOMER]", user.Roles)
	}
	if !user.Enabled {
		t.Error("registered user is not enabled")
	}
}

func TestRegister_InvalidRoleFallsBack(t *testing.T) {
	s, users := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/api/register",
		`{"username":"bob","password":"flat-white","role":"ROLE_BARISTA"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, want 200", rec.Code)
	}

	user, err := users.GetUserByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "ROLE_CUSTOMER" {
		t.Errorf("roles = %v, want fallback to [ROLE_CUSTOMER]", user.Roles)
	}
}

func TestRegister_ValidRoleKept(t *testing.T) {
	s, users := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/api/register",
		`{"username":"mia","password":"macchiato","role":"ROLE_MANAGER"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, want 200", rec.Code)
	}

	user, err := users.GetUserByUsername(context.Background(), "mia")
	if err != nil {
		t.Fatalf("GetUserByUsername() error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "ROLE_MANAGER" {
		t.Errorf("roles = %v, want [ROLE_MANAGER]", user.Roles)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	rec := doRequest(t, s, http.MethodPost, "/auth/api/register",
		`{"username":"alice","password":"other"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/api/register",
		`{"username":"bob"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMe_Authenticated(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER", "ROLE_MANAGER")

	token, err := s.codec.Issue("alice", []string{"ROLE_CUSTOMER", "ROLE_MANAGER"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/auth/me", "", withBearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["username"] != "alice" {
		t.Errorf("username = %v, want alice", body["username"])
	}
	roles, ok := body["roles"].([]any)
	if !ok || len(roles) != 2 {
		t.Errorf("roles = %v, want two entries", body["roles"])
	}
}

func TestMe_Anonymous(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMe_TokenViaCookie(t *testing.T) {
	s, users := newTestServer(t)
	seedUser(t, users, "alice", "latte-art", "ROLE_CUSTOMER")

	token, err := s.codec.Issue("alice", []string{"ROLE_CUSTOMER"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: token})
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealth_Public(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}
