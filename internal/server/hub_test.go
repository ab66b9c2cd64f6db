package server

import (
	"testing"
	"time"
)

// TestHubRegisterSeedsConnectionEstablished verifies registration inserts
// the session and queues exactly one connection_established event before
// anything else.
func TestHubRegisterSeedsConnectionEstablished(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	s := newTestSession(hub, "Alice", []string{"2", "3"})
	hub.register <- s

	env := readQueuedEvent(t, s)
	if env.Type != EventConnectionEstablished {
		t.Fatalf("First event is %s, want %s", env.Type, EventConnectionEstablished)
	}

	var payload ConnectionEstablishedPayload
	decodePayload(t, env, &payload)
	if payload.ClientID != s.ID() {
		t.Errorf("ClientID = %q, want %q", payload.ClientID, s.ID())
	}
	if payload.AssignedName != "Alice" {
		t.Errorf("AssignedName = %q, want Alice", payload.AssignedName)
	}
	assertStringSlice(t, payload.Permissions, []string{"2", "3"})

	waitForCount(t, hub.Registry(), 1)
	if _, ok := hub.Registry().Get(s.ID()); !ok {
		t.Error("Registered session missing from registry")
	}

	expectNoQueuedEvent(t, s, 50*time.Millisecond)
}

// TestHubUnregisterIsIdempotent verifies a second unregister of the same
// session is a no-op rather than a panic or an error.
func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	s := newTestSession(hub, "Alice", []string{"2"})
	registerTestSession(t, hub, s)
	waitForCount(t, hub.Registry(), 1)

	hub.unregister <- s
	waitForCount(t, hub.Registry(), 0)

	hub.unregister <- s

	// Prove the loop survived the duplicate by running another cycle.
	again := newTestSession(hub, "Bob", []string{"2"})
	registerTestSession(t, hub, again)
	waitForCount(t, hub.Registry(), 1)
}

// TestHubBroadcastFiltersByCapability verifies capability-routed fan-out
// selects recipients by token at broadcast time.
func TestHubBroadcastFiltersByCapability(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	holder := newTestSession(hub, "Holder", []string{"3"})
	bystander := newTestSession(hub, "Bystander", []string{"2"})
	registerTestSession(t, hub, holder)
	registerTestSession(t, hub, bystander)

	hub.broadcast <- BroadcastMessage{Capability: "3", Payload: []byte(`{"type":"notification","payload":"x"}`)}

	if env := readQueuedEvent(t, holder); env.Type != EventNotification {
		t.Errorf("Holder received %s", env.Type)
	}
	expectNoQueuedEvent(t, bystander, 100*time.Millisecond)
}

// TestHubBroadcastToAll verifies an unfiltered broadcast reaches every
// registered session.
func TestHubBroadcastToAll(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	first := newTestSession(hub, "First", []string{"1"})
	second := newTestSession(hub, "Second", []string{"admin"})
	registerTestSession(t, hub, first)
	registerTestSession(t, hub, second)

	hub.broadcast <- BroadcastMessage{Payload: []byte(`{"type":"notification","payload":"x"}`)}

	for _, s := range []*Session{first, second} {
		if env := readQueuedEvent(t, s); env.Type != EventNotification {
			t.Errorf("Session %s received %s", s.ID(), env.Type)
		}
	}
}

// TestHubNilRegistrationSkipped verifies a nil registration does not kill
// the run loop.
func TestHubNilRegistrationSkipped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	hub.register <- nil

	s := newTestSession(hub, "Alice", []string{"2"})
	registerTestSession(t, hub, s)
	waitForCount(t, hub.Registry(), 1)
}

// TestHubShutdownCompletes verifies Shutdown returns after draining and is
// safe with sessions still registered.
func TestHubShutdownCompletes(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	s := newTestSession(hub, "Alice", []string{"2"})
	registerTestSession(t, hub, s)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown returned %v", err)
	}
}
