// ABOUTME: HTTP middleware implementing the per-request authentication pipeline
// ABOUTME: Fail-open design: every credential failure degrades to anonymous

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cafeworks/cafe-gateway/internal/store"
)

// UserLookup resolves a username to a stored user. It is the seam to the
// external user store; the pipeline reads principals, never persists them.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Authenticator runs the authentication pipeline once per request:
// extract credential, verify token, resolve principal, populate context.
//
// The pipeline never terminates a request itself. Every failure inside it
// (missing token, parse error, bad signature, expiry, unknown or disabled
// user) is logged and the request proceeds unauthenticated; enforcement is
// the authorization policy's job.
type Authenticator struct {
	codec  TokenCodec
	users  UserLookup
	logger *slog.Logger
}

// NewAuthenticator creates an authentication pipeline over the given codec and user store.
func NewAuthenticator(codec TokenCodec, users UserLookup, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		codec:  codec,
		users:  users,
		logger: logger.With("component", "auth"),
	}
}

// Middleware returns the HTTP middleware form of the pipeline.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractToken(r)
			if !ok {
				// No credential: common for public routes.
				next.ServeHTTP(w, r)
				return
			}

			claims, err := a.codec.Verify(token)
			if err != nil {
				// A bad signature may indicate tampering; everything else is routine.
				if errors.Is(err, ErrBadSignature) {
					a.logger.Warn("token signature verification failed", "path", r.URL.Path)
				} else {
					a.logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			// Idempotent within a request: an identity populated by an
			// earlier mechanism is left untouched.
			if FromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := a.users.GetUserByUsername(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					a.logger.Debug("token subject no longer resolves", "subject", claims.Subject)
				} else {
					a.logger.Error("user lookup failed", "subject", claims.Subject, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if !user.Enabled {
				a.logger.Debug("token subject is disabled", "subject", claims.Subject)
				next.ServeHTTP(w, r)
				return
			}

			// Authorities come from the token claims, not a fresh role lookup.
			identity := &Identity{
				Username:    claims.Subject,
				Authorities: claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
