package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors SQLite behavior for validation and error handling.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	users          map[string]*model.User
	sessionOwner   map[string]string              // token -> username (reverse index)
	sessionsByUser map[string]map[string]struct{} // username -> token set
	secretInfo     string
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:            now,
		users:          make(map[string]*model.User),
		sessionOwner:   make(map[string]string),
		sessionsByUser: make(map[string]map[string]struct{}),
	}
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// ---- Users ----

func (m *MemoryStore) CreateUser(user *model.User) error {
	if err := model.ValidateUsername(user.Username); err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	if !user.Role.Valid() {
		return fmt.Errorf("store: create user: %w", model.ErrInvalidRole)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return fmt.Errorf("store: create user %q: %w", user.Username, ErrUserExists)
	}
	user.CreatedAt = m.now()
	clone := *user
	m.users[user.Username] = &clone
	return nil
}

func (m *MemoryStore) GetUser(username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (m *MemoryStore) ListUsers() ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []model.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MemoryStore) SetRole(username string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("store: set role: %w", model.ErrInvalidRole)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.Role = role
	}
	return nil
}

func (m *MemoryStore) SetBanned(username string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.Banned = banned
	}
	return nil
}

func (m *MemoryStore) SetWarned(username string, warned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.Warned = warned
	}
	return nil
}

func (m *MemoryStore) UpdateProfile(username string, profile model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.Profile = profile
	}
	return nil
}

func (m *MemoryStore) SetPasswordHash(username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (m *MemoryStore) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, username)
	for token := range m.sessionsByUser[username] {
		delete(m.sessionOwner, token)
	}
	delete(m.sessionsByUser, username)
	return nil
}

// ---- Sessions ----

func (m *MemoryStore) BindSession(username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, bound := m.sessionOwner[token]; bound {
		return nil // token already bound, mirror ON CONFLICT DO NOTHING
	}
	m.sessionOwner[token] = username
	if m.sessionsByUser[username] == nil {
		m.sessionsByUser[username] = make(map[string]struct{})
	}
	m.sessionsByUser[username][token] = struct{}{}
	return nil
}

func (m *MemoryStore) UnbindSession(username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.sessionOwner[token]; !ok || owner != username {
		return nil
	}
	delete(m.sessionOwner, token)
	delete(m.sessionsByUser[username], token)
	return nil
}

func (m *MemoryStore) ResolveSession(token string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	username, ok := m.sessionOwner[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	return username, nil
}

func (m *MemoryStore) SessionsFor(username string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tokens []string
	for token := range m.sessionsByUser[username] {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens, nil
}

// ---- Secret info ----

func (m *MemoryStore) SecretInfo() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.secretInfo, nil
}

func (m *MemoryStore) SetSecretInfo(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secretInfo = text
	return nil
}

// Compile-time check: *MemoryStore implements DataStore.
var _ DataStore = (*MemoryStore)(nil)
