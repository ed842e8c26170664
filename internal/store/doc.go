// Package store provides user persistence for cafe-gateway.
//
// The UserStore interface is the narrow seam consumed by the auth package;
// SQLiteStore is the production implementation (modernc.org/sqlite, WAL mode,
// schema created on open) and MockStore is an in-memory double for tests.
//
// Roles are stored as rows in the user_roles table, one row per assignment,
// and surfaced on User.Roles in insertion order.
package store
