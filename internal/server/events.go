// Package server defines the wire envelope and the catalogue of events
// exchanged with connected agents.
package server

import (
	"encoding/json"
	"time"
)

// Inbound event types recognized by the dispatcher.
const (
	EventChat              = "chat"
	EventNotification      = "notification"
	EventUpdatePermissions = "update_permissions"
	EventGetClients        = "get_clients"
	EventAuthData          = "auth_data"
	EventTransferClient    = "transfer_client"
)

// Outbound event types.
const (
	EventConnectionEstablished        = "connection_established"
	EventAuthConfirmation             = "auth_confirmation"
	EventAuthError                    = "auth_error"
	EventPermissionUpdateConfirmation = "permission_update_confirmation"
	EventPermissionError              = "permission_error"
	EventGetClientsResponse           = "get_clients_response"
	EventCategoryUpdated              = "category_updated"
	EventTransferError                = "transfer_error"
	EventError                        = "error"
)

// Error codes carried by validation error events.
const (
	CodeAuthError       = "AUTH_001"
	CodePermissionError = "PERM_001"
)

// Envelope is the frame exchanged in both directions: a type tag and an
// opaque payload. Inbound payloads are decoded by the handler that owns the
// event type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionEstablishedPayload is sent once to a session right after it is
// registered, before any other event.
type ConnectionEstablishedPayload struct {
	ClientID     string   `json:"clientId"`
	AssignedName string   `json:"assignedName"`
	Permissions  []string `json:"permissions"`
}

// AuthConfirmationPayload acknowledges a successful auth_data update.
type AuthConfirmationPayload struct {
	Status      string   `json:"status"`
	UpdatedName string   `json:"updatedName"`
	Permissions []string `json:"permissions"`
	Timestamp   string   `json:"timestamp"`
}

// AuthErrorPayload reports a rejected auth_data request.
type AuthErrorPayload struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// PermissionUpdatePayload acknowledges a successful update_permissions request.
type PermissionUpdatePayload struct {
	Status         string   `json:"status"`
	NewPermissions []string `json:"newPermissions"`
	Timestamp      string   `json:"timestamp"`
}

// PermissionErrorPayload reports a rejected update_permissions request.
type PermissionErrorPayload struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// RosterEntry describes one registered session in a get_clients_response.
type RosterEntry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Permissions  []string `json:"permissions"`
	Status       string   `json:"status"`
	LastActivity string   `json:"lastActivity"`
}

// CategoryUpdatedPayload announces a client re-categorization to sessions
// holding the matching capability.
type CategoryUpdatedPayload struct {
	ClientID    string `json:"clientId"`
	NewCategory string `json:"newCategory"`
}

// TransferErrorPayload reports a rejected transfer_client request.
type TransferErrorPayload struct {
	Message string `json:"message"`
}

// encodeEvent marshals a payload into a framed envelope ready for the wire.
func encodeEvent(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// eventTimestamp renders the current time the way clients expect it.
func eventTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
