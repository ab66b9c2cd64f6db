// Package server coordinates session registration, capability-routed
// fan-out, and connection cleanup for the Agent Hub via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BroadcastMessage is a serialized event fanned out by the hub. An empty
// Capability targets every registered session; otherwise delivery is limited
// to sessions holding the capability token.
type BroadcastMessage struct {
	Capability string
	Payload    []byte
}

// Hub is the connection lifecycle manager. It owns the session registry: it
// is the only component that inserts and deletes entries, seeds every new
// session with its connection_established event, and fans broadcast messages
// out to the matching recipients. Construct one explicitly and pass it where
// needed; there is no package-level instance.
type Hub struct {
	registry   *Registry
	dispatcher *dispatcher
	broadcast  chan BroadcastMessage
	register   chan *Session
	unregister chan *Session
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub with an empty registry. The
// returned Hub is ready to manage sessions once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:   NewRegistry(),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.dispatcher = newDispatcher(h)
	return h
}

// Registry exposes the hub's session registry for read access by handlers
// and tests. Mutation stays with the hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// GetRegisterChan returns the channel used for registering new sessions.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Session {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering sessions.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Session {
	return h.unregister
}

// GetBroadcastChan returns the channel used for fanning out messages.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetBroadcastChan() chan<- BroadcastMessage {
	return h.broadcast
}

// Run starts the hub's main event loop, handling session registration,
// unregistration, and broadcasting. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case s := <-h.register:
			if s == nil {
				slog.Warn("Received nil session registration; skipping")
				continue
			}
			h.handleRegister(s)

		case s := <-h.unregister:
			h.handleUnregister(s)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// handleRegister inserts the session into the registry, acknowledges the
// connection, and starts the pump goroutines. The acknowledgement is queued
// before the write pump starts, so it is always the first event the peer
// receives.
func (h *Hub) handleRegister(s *Session) {
	s.setClosed(false)
	h.registry.Put(s.id, s)
	metricActiveSessions.Set(float64(h.registry.Count()))
	slog.Info("Session registered", "session", s.id, "name", s.Name(), "addr", s.addr, "total", h.registry.Count())

	s.sendEvent(EventConnectionEstablished, ConnectionEstablishedPayload{
		ClientID:     s.id,
		AssignedName: s.Name(),
		Permissions:  s.Permissions(),
	})

	if s.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()
	go func() {
		defer h.wg.Done()
		s.readPump()
	}()
}

// handleUnregister removes the session from the registry. Teardown is
// idempotent: a session already removed (eviction, duplicate disconnect) is
// a no-op.
func (h *Hub) handleUnregister(s *Session) {
	if s == nil {
		return
	}
	if !h.registry.Delete(s.id) {
		return
	}
	s.setClosed(true)
	close(s.send)
	metricActiveSessions.Set(float64(h.registry.Count()))
	slog.Info("Session departed", "session", s.id, "name", s.Name(), "total", h.registry.Count())
}

// safeSend delivers a message to a single session if it is still registered
// and open. A failed delivery never affects other recipients.
func (h *Hub) safeSend(s *Session, message []byte) bool {
	if _, ok := h.registry.Get(s.id); !ok {
		return false
	}
	return s.enqueue(message)
}

// handleBroadcast fans a message out to every matching session from a
// registry snapshot. Sessions added or removed mid-broadcast may or may not
// receive it; recipients with a full buffer are evicted.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	var failed []*Session
	delivered := 0

	for _, s := range h.registry.Snapshot() {
		if msg.Capability != "" && !s.HasPermission(msg.Capability) {
			continue
		}
		if h.safeSend(s, msg.Payload) {
			delivered++
		} else {
			failed = append(failed, s)
		}
	}

	metricBroadcastDeliveries.Add(float64(delivered))
	slog.Debug("Broadcast delivered", "capability", msg.Capability, "recipients", delivered)

	h.removeFailedSessions(failed)
}

// removeFailedSessions evicts sessions that could not accept a delivery.
func (h *Hub) removeFailedSessions(failed []*Session) {
	for _, s := range failed {
		if !h.registry.Delete(s.id) {
			continue
		}
		s.setClosed(true)
		close(s.send)
		slog.Warn("Session evicted after failed delivery", "session", s.id, "addr", s.addr)
	}
	if len(failed) > 0 {
		metricActiveSessions.Set(float64(h.registry.Count()))
	}
}

// shutdownSessions closes every active connection best-effort.
func (h *Hub) shutdownSessions() {
	sessions := h.registry.Snapshot()
	slog.Info("Shutting down all sessions", "count", len(sessions))

	for _, s := range sessions {
		if s.conn == nil {
			continue
		}
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Warn("Error closing session connection", "session", s.id, "error", err)
		}
	}
}

// Shutdown initiates graceful shutdown of the hub and waits for all pump
// goroutines to complete, or until the timeout is reached. It is safe to
// call more than once.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("Initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("Hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
