// Package server tracks connected sessions in a concurrency-safe registry
// keyed by session identifier.
package server

import "sync"

// Registry is the single source of truth for which sessions are connected.
// It supports concurrent readers and writers; iteration works over a
// snapshot so a visitor never observes a torn entry and never runs under the
// registry lock. The hub is the only component that inserts or deletes
// entries.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Put inserts or replaces the session stored under id.
func (r *Registry) Put(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

// Get returns the session stored under id, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete removes the session stored under id and reports whether it was
// present. Deleting an absent id is a no-op.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ForEach visits every registered session in no particular order. The
// visitor runs outside the registry lock, so a session registered or removed
// mid-iteration may or may not be visited.
func (r *Registry) ForEach(visit func(id string, s *Session)) {
	for _, s := range r.Snapshot() {
		visit(s.ID(), s)
	}
}

// Snapshot returns the current sessions as a slice safe to iterate without
// holding the registry lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
