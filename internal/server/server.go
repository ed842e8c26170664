// ABOUTME: HTTP server assembly for the cafe-gateway API
// ABOUTME: Wires the authentication pipeline and authorization policy around the mux

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cafeworks/cafe-gateway/internal/auth"
	"github.com/cafeworks/cafe-gateway/internal/config"
	"github.com/cafeworks/cafe-gateway/internal/store"
)

// Server serves the cafe-gateway HTTP API.
type Server struct {
	cfg       *config.Config
	users     store.UserStore
	codec     *auth.Codec
	passwords *auth.PasswordAuthenticator
	tokenTTL  time.Duration
	logger    *slog.Logger

	httpServer *http.Server
}

// New creates a server over the given config and user store.
func New(cfg *config.Config, users store.UserStore, logger *slog.Logger) (*Server, error) {
	codec, err := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		users:     users,
		codec:     codec,
		passwords: auth.NewPasswordAuthenticator(users),
		tokenTTL:  cfg.Auth.TokenTTL,
		logger:    logger.With("component", "server"),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler builds the full request chain: authentication pipeline first,
// authorization policy second, then the route mux. Exported so tests can
// drive the exact production chain through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/auth/api/register", s.handleRegister)
	mux.HandleFunc("/auth/api/login", s.handleLogin)
	mux.HandleFunc("/auth/api/logout", s.handleLogout)
	mux.HandleFunc("/auth/me", s.handleMe)

	mux.HandleFunc("/admin/users", s.handleUsers)
	mux.HandleFunc("/admin/users/", s.handleUserByID)

	mux.HandleFunc("/manager/dashboard", s.handleManagerDashboard)
	mux.HandleFunc("/customer/dashboard", s.handleCustomerDashboard)

	authn := auth.NewAuthenticator(s.codec, s.users, s.logger)
	policy := auth.DefaultPolicy()

	return authn.Middleware()(policy.Middleware(s.logger)(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
