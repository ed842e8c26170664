// ABOUTME: JWT token issuance and verification for authenticating HTTP requests
// ABOUTME: Uses HS256 signing with a process-wide secret and configurable TTL

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum signing secret length in bytes.
const MinSecretLength = 32

// Token errors. All verification failures satisfy errors.Is(err, ErrInvalidToken);
// the specific sentinels distinguish why verification failed so the pipeline can
// log each variant at the appropriate level.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMalformedToken = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrBadSignature   = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrExpiredToken   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingClaim   = fmt.Errorf("%w: missing claim", ErrInvalidToken)
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed tokens.
type TokenCodec interface {
	Issue(subject string, roles []string) (string, error)
	Verify(tokenString string) (*Claims, error)
}

// Codec implements TokenCodec using HS256 signed JWTs.
// The wire format carries {sub, roles, iat, exp} with epoch-second timestamps.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a token codec with the given secret and token lifetime.
// The secret must be at least MinSecretLength bytes.
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	return &Codec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a new signed token for the given subject carrying the roles verbatim.
func (c *Codec) Issue(subject string, roles []string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject must not be empty")
	}

	now := c.now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(c.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify validates the token signature and expiry and decodes the claim set.
// Role values are trusted verbatim from the previously self-issued token;
// whether the subject still exists is the caller's concern.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HMAC-family
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	claims := &Claims{
		Subject: sub,
		Roles:   rolesFromClaim(mapClaims["roles"]),
	}

	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// rolesFromClaim converts the decoded "roles" claim into a string slice.
// A missing or malformed claim yields no roles rather than an error.
func rolesFromClaim(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
