// ABOUTME: In-memory UserStore implementation for tests
// ABOUTME: Mirrors the SQLite store's semantics including duplicate detection

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory UserStore safe for concurrent use.
// Tests can force failures by setting Err.
type MockStore struct {
	mu    sync.Mutex
	users map[string]*User // keyed by ID

	// Err, when set, is returned by every method.
	Err error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{users: make(map[string]*User)}
}

func (m *MockStore) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MockStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MockStore) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MockStore) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	for id, u := range m.users {
		if id != user.ID && u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MockStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func copyUser(u *User) *User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
