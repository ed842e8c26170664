// ABOUTME: Store interface and data types for cafe-gateway persistence
// ABOUTME: Defines the User struct and the UserStore interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when creating or renaming a user to a taken username
var ErrDuplicateUsername = errors.New("username already exists")

// User represents a registered account. Usernames are unique and immutable
// except through an explicit admin rename. The password hash never leaves
// this package except for bcrypt comparison at login.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []string // role names, each prefixed ROLE_
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore defines the interface for user persistence
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	// UpdateUser replaces the stored username, password hash, roles, and
	// enabled flag of the user identified by user.ID.
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
}
