// Package server validates and applies update_permissions events.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

type permissionUpdateRequest struct {
	Permissions json.RawMessage `json:"permissions"`
}

// handlePermissionUpdate replaces the requesting session's capability set.
// The permissions field must be an ordered sequence; entries are trimmed,
// filtered to the accepted vocabulary, and capped to the first three valid
// ones. Failures are reported back to the requester as a permission_error.
func handlePermissionUpdate(reg *Registry, s *Session, payload json.RawMessage) {
	if err := applyPermissionUpdate(reg, s, payload); err != nil {
		message := "Unknown error"
		var v *ValidationError
		switch {
		case errors.As(err, &v):
			message = v.Message
		case errors.Is(err, ErrUnknownSession):
			message = "Client not found"
		}
		s.sendEvent(EventPermissionError, PermissionErrorPayload{
			Error:     message,
			Code:      CodePermissionError,
			Timestamp: eventTimestamp(),
		})
	}
}

func applyPermissionUpdate(reg *Registry, s *Session, payload json.RawMessage) error {
	if _, ok := reg.Get(s.ID()); !ok {
		return ErrUnknownSession
	}

	var req permissionUpdateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return newValidationError(CodePermissionError, "Invalid permissions format")
	}

	var entries []any
	if err := json.Unmarshal(req.Permissions, &entries); err != nil {
		return newValidationError(CodePermissionError, "Invalid permissions format")
	}

	tokens := make([]string, 0, len(entries))
	for _, entry := range entries {
		tokens = append(tokens, fmt.Sprint(entry))
	}

	permissions := filterUpdatePermissions(tokens)
	if len(permissions) > maxUpdatePermissions {
		permissions = permissions[:maxUpdatePermissions]
	}

	s.SetPermissions(permissions)

	s.sendEvent(EventPermissionUpdateConfirmation, PermissionUpdatePayload{
		Status:         "success",
		NewPermissions: permissions,
		Timestamp:      eventTimestamp(),
	})

	slog.Info("Permissions updated", "session", s.ID(), "permissions", permissions)
	return nil
}
