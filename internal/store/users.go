// ABOUTME: User CRUD operations for the SQLite store
// ABOUTME: Roles are stored as rows in the user_roles table

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateUser inserts a new user and its role assignments in one transaction.
// Returns ErrDuplicateUsername if the username is already taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Username,
		user.PasswordHash,
		boolToInt(user.Enabled),
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	if err := insertRoles(ctx, tx, user.ID, user.Roles, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("user created", "id", user.ID, "username", user.Username)
	return nil
}

// GetUserByUsername retrieves a user by username.
// Returns ErrNotFound if no such user exists.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// GetUserByID retrieves a user by ID.
// Returns ErrNotFound if no such user exists.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, enabled, created_at, updated_at
		FROM users
		WHERE `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user.Roles, err = s.listRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ListUsers returns all users ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, enabled, created_at, updated_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	for _, user := range users {
		user.Roles, err = s.listRoles(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return users, nil
}

// UpdateUser replaces the stored fields and role assignments of user.ID.
// Returns ErrNotFound for an unknown ID and ErrDuplicateUsername when the
// new username is held by another user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	user.UpdatedAt = now

	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET username = ?, password_hash = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Username,
		user.PasswordHash,
		boolToInt(user.Enabled),
		user.UpdatedAt.Format(time.RFC3339),
		user.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("updating user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, user.ID); err != nil {
		return fmt.Errorf("clearing roles: %w", err)
	}
	if err := insertRoles(ctx, tx, user.ID, user.Roles, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("user updated", "id", user.ID, "username", user.Username)
	return nil
}

// DeleteUser removes a user and, via cascade, its role assignments.
// Returns ErrNotFound for an unknown ID.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("user deleted", "id", id)
	return nil
}

// listRoles returns the role names assigned to a user, in insertion order.
func (s *SQLiteStore) listRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM user_roles WHERE user_id = ? ORDER BY created_at, role
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	return roles, nil
}

func insertRoles(ctx context.Context, tx *sql.Tx, userID string, roles []string, now time.Time) error {
	for _, role := range roles {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_roles (user_id, role, created_at)
			VALUES (?, ?, ?)
		`, userID, role, now.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("inserting role %q: %w", role, err)
		}
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var user User
	var enabled int
	var createdAtStr, updatedAtStr string

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &enabled, &createdAtStr, &updatedAtStr)
	if err != nil {
		return nil, err
	}

	user.Enabled = enabled != 0

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
