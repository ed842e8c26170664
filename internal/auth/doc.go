// Package auth provides authentication and authorization for cafe-gateway.
//
// # Request pipeline
//
// Every inbound request passes through two stages:
//
//   - Authentication (Authenticator.Middleware): extracts a bearer credential
//     from the Authorization header or the jwt cookie, verifies and decodes
//     it, resolves the subject against the user store, and attaches an
//     Identity to the request context. The stage is fail-open: any credential
//     failure degrades to an anonymous request and the pipeline never writes
//     a response itself.
//
//   - Authorization (Policy.Middleware): an ordered first-match rule list
//     mapping method+path to public, authenticated, or a required role.
//     This is the sole enforcement point; it rejects with 401 when no
//     identity is present and 403 when the identity lacks the role.
//
// # Tokens
//
// Tokens are HS256 JWTs signed with the configured jwt_secret, carrying
// {sub, roles, iat, exp}. Roles travel as plain strings in the claims and
// are validated against the closed role set only at the policy boundary.
//
//	codec, err := NewCodec(secret, 24*time.Hour)
//	token, err := codec.Issue("alice", []string{"ROLE_CUSTOMER"})
//	claims, err := codec.Verify(token)
//
// There is no server-side revocation: logout clears the client cookie and a
// previously issued token stays valid until its natural expiry.
//
// # Passwords
//
// Login credentials are verified with bcrypt via PasswordAuthenticator,
// which performs a dummy comparison for unknown usernames so rejection
// timing does not leak account existence.
package auth
