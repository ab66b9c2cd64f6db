package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestHandler() *Handler {
	return NewHandler(newTestService())
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return resp
}

func TestHandlerRegister(t *testing.T) {
	handler := newTestHandler()

	rec := postJSON(t, handler.Register, "/auth/register", credentialsRequest{
		Email:    "agent@example.com",
		Password: "hunter22",
		Name:     "Agent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeAuthResponse(t, rec)
	if resp.User.Email != "agent@example.com" {
		t.Errorf("Expected email in response, got %q", resp.User.Email)
	}
	if resp.Token == "" {
		t.Error("Expected a token in the response")
	}

	// Same email again conflicts.
	rec = postJSON(t, handler.Register, "/auth/register", credentialsRequest{
		Email:    "agent@example.com",
		Password: "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status %d for duplicate email, got %d", http.StatusConflict, rec.Code)
	}
}

func TestHandlerRegisterValidation(t *testing.T) {
	handler := newTestHandler()

	tests := []struct {
		name string
		body credentialsRequest
	}{
		{"missing email", credentialsRequest{Password: "hunter22"}},
		{"missing password", credentialsRequest{Email: "agent@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Register, "/auth/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/register", nil)
	rec := httptest.NewRecorder()
	handler.Register(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d for GET, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestHandlerLogin(t *testing.T) {
	handler := newTestHandler()

	postJSON(t, handler.Register, "/auth/register", credentialsRequest{
		Email:    "agent@example.com",
		Password: "hunter22",
		Name:     "Agent",
	})

	rec := postJSON(t, handler.Login, "/auth/login", credentialsRequest{
		Email:    "agent@example.com",
		Password: "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if resp := decodeAuthResponse(t, rec); resp.Token == "" {
		t.Error("Expected a token in the login response")
	}

	rec = postJSON(t, handler.Login, "/auth/login", credentialsRequest{
		Email:    "agent@example.com",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for wrong password, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestHandlerMe(t *testing.T) {
	handler := newTestHandler()

	rec := postJSON(t, handler.Register, "/auth/register", credentialsRequest{
		Email:    "agent@example.com",
		Password: "hunter22",
		Name:     "Agent",
	})
	token := decodeAuthResponse(t, rec).Token

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if resp := decodeAuthResponse(t, rec); resp.User.Email != "agent@example.com" {
		t.Errorf("Expected resolved identity, got %+v", resp.User)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer scheme", "Basic abc"},
		{"invalid token", "Bearer garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.Me(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestHandlerTokenLifetimeFromIssuer(t *testing.T) {
	// An expired token must not pass the identity endpoint.
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	store := NewMemoryStore()
	handler := NewHandler(NewService(store, issuer))

	user, err := store.Create(User{Email: "agent@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	token, err := issuer.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for expired token, got %d", http.StatusUnauthorized, rec.Code)
	}
}
