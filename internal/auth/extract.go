// ABOUTME: Credential extraction from inbound HTTP requests
// ABOUTME: Checks the Authorization bearer header first, then the jwt cookie

package auth

import (
	"net/http"
	"strings"
)

// TokenCookieName is the cookie carrying the token for browser clients.
const TokenCookieName = "jwt"

// bearerPrefix is the expected Authorization header prefix, exactly one space.
const bearerPrefix = "Bearer "

// ExtractToken locates a candidate token string in the request.
// The Authorization header takes precedence over the jwt cookie.
// Absence of a credential is not an error; public routes commonly have none.
func ExtractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		if token := strings.TrimPrefix(authHeader, bearerPrefix); token != "" {
			return token, true
		}
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	return "", false
}
