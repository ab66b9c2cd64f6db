package server

import (
	"testing"
	"time"
)

// TestClientListIncludesEveryEntry verifies the roster carries id, name,
// permissions, status, and a parseable last-activity timestamp for each
// registered session.
func TestClientListIncludesEveryEntry(t *testing.T) {
	hub, requester := setupIdentityTest(t)

	other := newTestSession(hub, "Bárbara", []string{"3"})
	registerTestSession(t, hub, other)

	handleClientList(hub.Registry(), requester)

	env := readQueuedEvent(t, requester)
	if env.Type != EventGetClientsResponse {
		t.Fatalf("Expected %s, got %s", EventGetClientsResponse, env.Type)
	}

	var roster []RosterEntry
	decodePayload(t, env, &roster)

	if len(roster) != 2 {
		t.Fatalf("Roster has %d entries, want 2", len(roster))
	}

	byID := make(map[string]RosterEntry, len(roster))
	for _, entry := range roster {
		byID[entry.ID] = entry
	}

	entry, ok := byID[other.ID()]
	if !ok {
		t.Fatalf("Roster missing session %s", other.ID())
	}
	if entry.Name != "Bárbara" {
		t.Errorf("Name = %q, want Bárbara", entry.Name)
	}
	assertStringSlice(t, entry.Permissions, []string{"3"})
	if entry.Status != "online" {
		t.Errorf("Status = %q, want online", entry.Status)
	}
	if _, err := time.Parse(time.RFC3339, entry.LastActivity); err != nil {
		t.Errorf("LastActivity %q is not RFC3339: %v", entry.LastActivity, err)
	}
}

// TestClientListExcludesDepartedSession verifies a disconnected session no
// longer appears in the roster.
func TestClientListExcludesDepartedSession(t *testing.T) {
	hub, requester := setupIdentityTest(t)

	other := newTestSession(hub, "Temp", []string{"2"})
	registerTestSession(t, hub, other)
	waitForCount(t, hub.Registry(), 2)

	hub.unregister <- other
	waitForCount(t, hub.Registry(), 1)

	handleClientList(hub.Registry(), requester)

	env := readQueuedEvent(t, requester)
	var roster []RosterEntry
	decodePayload(t, env, &roster)

	if len(roster) != 1 {
		t.Fatalf("Roster has %d entries after departure, want 1", len(roster))
	}
	if roster[0].ID != requester.ID() {
		t.Errorf("Remaining roster entry is %s, want %s", roster[0].ID, requester.ID())
	}
}

// TestClientListOnEmptyRegistry verifies an empty roster is still a valid
// response.
func TestClientListOnEmptyRegistry(t *testing.T) {
	hub := NewHub()
	requester := newTestSession(hub, "Solo", []string{"2"})
	// Deliberately unregistered: the roster does not require the requester
	// to be present, only connected.
	handleClientList(hub.Registry(), requester)

	env := readQueuedEvent(t, requester)
	if env.Type != EventGetClientsResponse {
		t.Fatalf("Expected %s, got %s", EventGetClientsResponse, env.Type)
	}
	var roster []RosterEntry
	decodePayload(t, env, &roster)
	if len(roster) != 0 {
		t.Errorf("Roster has %d entries, want 0", len(roster))
	}
}
