// Package server serializes the session registry into a client-facing
// roster.
package server

import (
	"log/slog"
	"time"
)

// handleClientList sends the full roster to the requesting session only.
// Status is derived from the transport open-state; last activity is the last
// liveness reply rendered as an ISO-8601 timestamp. Internal failures fall
// back to a generic error event instead of propagating.
func handleClientList(reg *Registry, s *Session) {
	entries := make([]RosterEntry, 0, reg.Count())
	reg.ForEach(func(id string, member *Session) {
		status := "offline"
		if member.Online() {
			status = "online"
		}
		entries = append(entries, RosterEntry{
			ID:           id,
			Name:         member.Name(),
			Permissions:  member.Permissions(),
			Status:       status,
			LastActivity: member.LastPong().UTC().Format(time.RFC3339),
		})
	})

	data, err := encodeEvent(EventGetClientsResponse, entries)
	if err != nil {
		slog.Error("Failed to build client list", "session", s.ID(), "error", err)
		s.sendEvent(EventError, "Failed to retrieve the client list")
		return
	}
	s.enqueue(data)
}
