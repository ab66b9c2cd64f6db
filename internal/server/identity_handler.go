// Package server validates and applies auth_data events, which update a
// session's display name and capability set.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type authDataRequest struct {
	Name        string          `json:"name"`
	Permissions json.RawMessage `json:"permissions"`
}

// handleAuthData applies an identity update to the requesting session.
// Validation failures and registry misses are reported back to the requester
// only, as an auth_error event; the session's prior state stays untouched.
func handleAuthData(reg *Registry, s *Session, payload json.RawMessage) {
	if err := applyAuthData(reg, s, payload); err != nil {
		message := "Unknown error"
		var v *ValidationError
		switch {
		case errors.As(err, &v):
			message = v.Message
		case errors.Is(err, ErrUnknownSession):
			message = "Client not found"
		}
		s.sendEvent(EventAuthError, AuthErrorPayload{
			Error:     message,
			Code:      CodeAuthError,
			Timestamp: eventTimestamp(),
		})
	}
}

func applyAuthData(reg *Registry, s *Session, payload json.RawMessage) error {
	var req authDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return newValidationError(CodeAuthError, "Invalid authentication format")
	}
	if req.Name == "" || isEmptyPayloadField(req.Permissions) {
		return newValidationError(CodeAuthError, "Invalid authentication format")
	}

	if _, ok := reg.Get(s.ID()); !ok {
		return ErrUnknownSession
	}

	name := sanitizeName(req.Name)
	permissions := filterUpdatePermissions(permissionTokens(req.Permissions))

	s.SetIdentity(name, permissions)

	s.sendEvent(EventAuthConfirmation, AuthConfirmationPayload{
		Status:      "success",
		UpdatedName: name,
		Permissions: permissions,
		Timestamp:   eventTimestamp(),
	})

	slog.Info("Identity updated", "session", s.ID(), "name", name)
	return nil
}

// isEmptyPayloadField reports whether a raw payload field is absent, null,
// or an empty string.
func isEmptyPayloadField(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == `""`
}

// permissionTokens normalizes a permissions field that may arrive as an
// ordered sequence or as a comma-joined string. Scalar values are rendered
// to text before splitting.
func permissionTokens(raw json.RawMessage) []string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}

	if list, ok := value.([]any); ok {
		tokens := make([]string, 0, len(list))
		for _, item := range list {
			tokens = append(tokens, fmt.Sprint(item))
		}
		return tokens
	}

	return strings.Split(fmt.Sprint(value), ",")
}
