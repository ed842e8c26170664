// ABOUTME: Password hashing and login-time credential verification
// ABOUTME: Uses bcrypt with a dummy-hash comparison to avoid username enumeration

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/cafeworks/cafe-gateway/internal/store"
)

// ErrInvalidCredentials is returned for every login rejection. Unknown user,
// wrong password, and disabled account are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash keeps the bcrypt comparison cost constant when the user does not
// exist, so response timing cannot enumerate valid usernames.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// PasswordAuthenticator verifies username/password pairs against the user store.
type PasswordAuthenticator struct {
	users UserLookup
}

// NewPasswordAuthenticator creates a password authenticator over the given user store.
func NewPasswordAuthenticator(users UserLookup) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users}
}

// Authenticate verifies the credentials and returns the stored user on success.
// All rejections surface as ErrInvalidCredentials; only store failures other
// than not-found propagate as distinct errors.
func (pa *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := pa.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
