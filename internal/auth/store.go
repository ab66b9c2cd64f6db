package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrEmailTaken rejects a registration for an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

// User is the persisted account record. The password field holds a bcrypt
// hash, never plaintext.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// UserStore is the generic record store consumed by the auth service:
// create, and find by a unique field.
type UserStore interface {
	Create(user User) (User, error)
	FindByEmail(email string) (User, bool)
	FindByID(id string) (User, bool)
}

// MemoryStore is an in-process UserStore, indexed by id and email.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new user record, assigning an id when none is set.
// Emails are unique, case-insensitively.
func (s *MemoryStore) Create(user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := s.byEmail[email]; exists {
		return User{}, ErrEmailTaken
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email

	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return user, nil
}

// FindByEmail looks up a user by email.
func (s *MemoryStore) FindByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, false
	}
	user, ok := s.byID[id]
	return user, ok
}

// FindByID looks up a user by id.
func (s *MemoryStore) FindByID(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	return user, ok
}
