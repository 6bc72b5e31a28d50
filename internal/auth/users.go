package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/ids"
)

// CredentialStore is a static, in-process user table. Users are provisioned
// at boot and immutable afterwards; the store only answers lookups and
// credential checks.
type CredentialStore struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	now        func() time.Time
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		byUsername: make(map[string]*User),
		now:        time.Now,
	}
}

// Provision adds a user with an already-computed password hash.
func (s *CredentialStore) Provision(username, passwordHash string, role Role) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || passwordHash == "" {
		return User{}, ErrMissingCredentials
	}
	if !role.Valid() {
		return User{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[username]; ok {
		return User{}, ErrUserExists
	}
	u := &User{
		ID:           ids.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	s.byUsername[username] = u
	return *u, nil
}

// ProvisionPassword hashes the plaintext password and provisions the user.
// Intended for boot-time seeding only.
func (s *CredentialStore) ProvisionPassword(username, password string, role Role) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.Provision(username, hash, role)
}

// Authenticate verifies credentials and returns the ephemeral identity.
// The bcrypt comparison is constant-time with respect to the stored hash.
func (s *CredentialStore) Authenticate(username, password string) (Identity, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return Identity{}, ErrMissingCredentials
	}

	s.mu.RLock()
	u, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// Find returns a user by username.
func (s *CredentialStore) Find(username string) (User, bool) {
	username = strings.TrimSpace(strings.ToLower(username))
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byUsername[username]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Count returns the number of provisioned users.
func (s *CredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUsername)
}
