// ABOUTME: HTTP handlers for registration, login, logout, and current-user info
// ABOUTME: Login issues a token both as payload and as an HttpOnly cookie

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/cafeworks/cafe-gateway/internal/auth"
	"github.com/cafeworks/cafe-gateway/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister handles POST /auth/api/register.
// An invalid or missing role falls back to ROLE_CUSTOMER.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	role := req.Role
	if !auth.IsValidRole(role) {
		if role != "" {
			s.logger.Warn("invalid role at registration, using default", "role", role)
		}
		role = string(auth.RoleCustomer)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Roles:        []string{role},
		Enabled:      true,
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusBadRequest, "username already taken")
			return
		}
		s.logger.Error("creating user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("user registered", "username", user.Username, "role", role)
	writeJSON(w, http.StatusOK, map[string]string{"message": "user registered"})
}

// handleLogin handles POST /auth/api/login. On success the token is returned
// in the body and set as an HttpOnly cookie with max-age equal to the token
// TTL. The rejection is deliberately generic: unknown user and wrong password
// are indistinguishable.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.passwords.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Info("login rejected", "username", req.Username)
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.logger.Error("authenticating user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.codec.Issue(user.Username, user.Roles)
	if err != nil {
		s.logger.Error("issuing token", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokenTTL.Seconds()),
		HttpOnly: true,
	})

	s.logger.Info("login successful", "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleLogout handles POST /auth/api/logout. Logout is client-side only: the
// cookie is overwritten with an immediately expired one, but a previously
// issued token stays valid until its natural expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	s.logger.Info("user logged out")
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleMe handles GET /auth/me, returning the current user's stored profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := auth.FromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), identity.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("looking up current user", "username", identity.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"roles":    user.Roles,
	})
}
