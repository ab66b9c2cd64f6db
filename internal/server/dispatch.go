// Package server routes inbound frames to their typed handlers.
package server

import (
	"encoding/json"
	"log/slog"
)

// dispatcher parses inbound envelopes and routes them on the type tag.
// Frames from a single session arrive in order through its read pump;
// different sessions dispatch concurrently.
type dispatcher struct {
	hub *Hub
}

func newDispatcher(hub *Hub) *dispatcher {
	return &dispatcher{hub: hub}
}

// dispatch decodes one frame and invokes the matching handler. Malformed
// frames and unrecognized types are logged and dropped; neither terminates
// the connection.
func (d *dispatcher) dispatch(s *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Warn("Dropping malformed frame", "session", s.ID(), "error", err)
		metricFramesDropped.WithLabelValues(dropReasonDecode).Inc()
		return
	}

	switch env.Type {
	case EventChat:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		slog.Debug("Chat event received", "session", s.ID())
	case EventNotification:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		d.handleNotification(s, env.Payload)
	case EventUpdatePermissions:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		handlePermissionUpdate(d.hub.registry, s, env.Payload)
	case EventGetClients:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		handleClientList(d.hub.registry, s)
	case EventAuthData:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		handleAuthData(d.hub.registry, s, env.Payload)
	case EventTransferClient:
		metricEventsTotal.WithLabelValues(env.Type).Inc()
		handleTransfer(d.hub, s, env.Payload)
	default:
		metricEventsTotal.WithLabelValues("unknown").Inc()
		slog.Info("Dropping unrecognized event type", "session", s.ID(), "type", env.Type)
	}
}

// handleNotification relays a system alert to every connected session. The
// inbound payload is recorded, not echoed.
func (d *dispatcher) handleNotification(s *Session, payload json.RawMessage) {
	slog.Info("Notification received", "session", s.ID(), "payload", string(payload))

	data, err := encodeEvent(EventNotification, "New system alert!")
	if err != nil {
		slog.Error("Failed to encode notification", "error", err)
		return
	}
	d.hub.broadcast <- BroadcastMessage{Payload: data}
}
