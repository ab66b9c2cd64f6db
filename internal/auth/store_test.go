package auth

import (
	"errors"
	"testing"
)

func TestMemoryStoreCreateAssignsID(t *testing.T) {
	store := NewMemoryStore()

	user, err := store.Create(User{Email: "Agent@Example.com", Name: "Agent"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected an assigned id")
	}
	if user.Email != "agent@example.com" {
		t.Errorf("Expected lowercased email, got %q", user.Email)
	}
}

func TestMemoryStoreDuplicateEmailRejected(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Create(User{Email: "agent@example.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Uniqueness is case-insensitive.
	if _, err := store.Create(User{Email: "AGENT@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestMemoryStoreLookups(t *testing.T) {
	store := NewMemoryStore()

	created, err := store.Create(User{Email: "agent@example.com", Name: "Agent"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	byEmail, ok := store.FindByEmail(" Agent@Example.com ")
	if !ok {
		t.Fatal("FindByEmail did not find the user")
	}
	if byEmail.ID != created.ID {
		t.Errorf("FindByEmail returned id %q, want %q", byEmail.ID, created.ID)
	}

	byID, ok := store.FindByID(created.ID)
	if !ok {
		t.Fatal("FindByID did not find the user")
	}
	if byID.Email != created.Email {
		t.Errorf("FindByID returned email %q, want %q", byID.Email, created.Email)
	}

	if _, ok := store.FindByEmail("missing@example.com"); ok {
		t.Error("Expected miss for unknown email")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Error("Expected miss for unknown id")
	}
}
