package auth

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidCredentials rejects a login with an unknown email or a wrong
// password, without distinguishing the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service implements register, login, and token validation over a UserStore
// and a TokenIssuer.
type Service struct {
	store  UserStore
	tokens *TokenIssuer
}

// NewService wires a Service from its collaborators.
func NewService(store UserStore, tokens *TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates an account and returns the stored user with a fresh
// bearer token.
func (s *Service) Register(email, password, name string) (User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, "", fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.store.Create(User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return User{}, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return User{}, "", err
	}

	slog.Info("User registered", "user", user.ID)
	return user, token, nil
}

// Login validates credentials and returns the user with a fresh bearer
// token.
func (s *Service) Login(email, password string) (User, string, error) {
	user, ok := s.store.FindByEmail(email)
	if !ok || !CheckPassword(password, user.PasswordHash) {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// ValidateToken decodes a bearer token and resolves it to the stored user.
func (s *Service) ValidateToken(token string) (User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return User{}, err
	}
	user, ok := s.store.FindByID(claims.UserID)
	if !ok {
		return User{}, ErrInvalidToken
	}
	return user, nil
}
