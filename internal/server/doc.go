// ABOUTME: Package documentation for the HTTP server
// ABOUTME: Describes the handler layout and middleware chain

// Package server wires the HTTP surface of the cafe gateway.
//
// A single Server owns the user store, the token codec, and the
// http.Server. All routes are registered on one ServeMux and wrapped
// by the authentication middleware (which resolves an Identity from a
// bearer token or cookie) followed by the authorization policy (which
// enforces role requirements per route). Handlers themselves only read
// the Identity from the request context.
package server
