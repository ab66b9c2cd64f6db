package server

import (
	"encoding/json"
	"testing"
	"time"
)

// newTestSession builds a session without a transport. The hub never starts
// pumps for it, so queued events stay readable on the send channel.
func newTestSession(hub *Hub, name string, permissions []string) *Session {
	id := NewSessionID()
	return NewSession(nil, hub, id, name, permissions, "test")
}

// registerTestSession registers the session through the hub's run loop and
// consumes the connection_established event so later assertions see only
// handler output.
func registerTestSession(t *testing.T, hub *Hub, s *Session) {
	t.Helper()
	select {
	case hub.register <- s:
	case <-time.After(time.Second):
		t.Fatal("Timed out registering session")
	}
	env := readQueuedEvent(t, s)
	if env.Type != EventConnectionEstablished {
		t.Fatalf("Expected %s as first event, got %s", EventConnectionEstablished, env.Type)
	}
}

// readQueuedEvent pops the next event queued for the session.
func readQueuedEvent(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case data, ok := <-s.send:
		if !ok {
			t.Fatal("Send channel closed while waiting for an event")
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("Failed to decode queued event: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a queued event")
	}
	return Envelope{}
}

// expectNoQueuedEvent asserts that nothing is queued for the session within
// the given window.
func expectNoQueuedEvent(t *testing.T, s *Session, window time.Duration) {
	t.Helper()
	select {
	case data, ok := <-s.send:
		if ok {
			t.Fatalf("Expected no queued event, got %s", data)
		}
	case <-time.After(window):
	}
}

// decodePayload unmarshals an envelope payload into out.
func decodePayload(t *testing.T, env Envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Payload, out); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", env.Type, err)
	}
}

// waitForCount polls until the registry holds the expected number of
// sessions.
func waitForCount(t *testing.T, reg *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if reg.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Registry count never reached %d (still %d)", want, reg.Count())
}
