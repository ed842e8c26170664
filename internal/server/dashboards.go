// ABOUTME: Role-scoped dashboard endpoints for manager and customer areas
// ABOUTME: Thin handlers; access control happens in the policy middleware

package server

import (
	"net/http"

	"github.com/cafeworks/cafe-gateway/internal/auth"
)

func (s *Server) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	s.handleDashboard(w, r, "manager")
}

func (s *Server) handleCustomerDashboard(w http.ResponseWriter, r *http.Request) {
	s.handleDashboard(w, r, "customer")
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, area string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The policy middleware guarantees an identity on these routes.
	identity := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"area":     area,
		"username": identity.Username,
	})
}
