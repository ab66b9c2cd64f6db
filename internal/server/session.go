// Package server manages individual agent sessions, handling read/write
// pumps, liveness probing, rate limiting, and per-session identity state.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// writeWait bounds a single write to the peer.
const writeWait = 10 * time.Second

// Session represents one live agent connection and its associated state:
// identity, capability set, liveness, and the outbound channel owned by the
// hub's registry entry.
type Session struct {
	conn *websocket.Conn
	hub  *Hub
	id   string
	addr string
	send chan []byte

	limiter        *rate.Limiter
	maxMessageSize int64
	pingInterval   time.Duration

	mu           sync.RWMutex
	name         string
	permissions  []string
	lastPong     time.Time
	awaitingPong bool
	closed       bool
}

// NewSessionID generates a session identifier with negligible collision
// probability for the lifetime of a process.
func NewSessionID() string {
	return uuid.NewString()
}

// NewSession creates a Session for the given connection with its initial
// identity. The send channel is buffered to absorb bursts of fan-out
// traffic.
func NewSession(conn *websocket.Conn, hub *Hub, id, name string, permissions []string, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	refill := rate.Limit(float64(cfg.RateLimit.Burst) / cfg.RateLimit.RefillInterval.Seconds())
	limiter := rate.NewLimiter(refill, cfg.RateLimit.Burst)

	return &Session{
		conn:           conn,
		hub:            hub,
		id:             id,
		addr:           addr,
		send:           make(chan []byte, 256),
		limiter:        limiter,
		maxMessageSize: cfg.MaxMessageSize,
		pingInterval:   cfg.PingInterval,
		name:           name,
		permissions:    append([]string(nil), permissions...),
		lastPong:       time.Now(),
	}
}

// ID returns the immutable session identifier.
func (s *Session) ID() string {
	return s.id
}

// Name returns the session's current display name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Permissions returns a copy of the session's capability set.
func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.permissions...)
}

// HasPermission reports whether the session holds the given capability token.
func (s *Session) HasPermission(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p == token {
			return true
		}
	}
	return false
}

// SetIdentity replaces the session's display name and capability set.
func (s *Session) SetIdentity(name string, permissions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.permissions = append([]string(nil), permissions...)
}

// SetPermissions replaces the session's capability set.
func (s *Session) SetPermissions(permissions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = append([]string(nil), permissions...)
}

// LastPong returns the time the last liveness reply was received.
func (s *Session) LastPong() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPong
}

// Online reports whether the session's transport is considered open.
func (s *Session) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *Session) setClosed(closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = closed
}

func (s *Session) markPong() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPong = time.Now()
	s.awaitingPong = false
}

// pongWait is the read deadline: a session that stays silent for two probe
// intervals is torn down by the transport.
func (s *Session) pongWait() time.Duration {
	return 2 * s.pingInterval
}

// GetSendChan returns the session's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (s *Session) GetSendChan() <-chan []byte {
	return s.send
}

// enqueue queues a serialized event for delivery. It never blocks: a full
// buffer or a closed session drops the message with a log line so one broken
// recipient cannot stall the sender.
func (s *Session) enqueue(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Dropped message for closed session", "session", s.id)
		}
	}()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return false
	}

	select {
	case s.send <- message:
		return true
	default:
		slog.Warn("Send buffer full; dropping message", "session", s.id, "addr", s.addr)
		metricFramesDropped.WithLabelValues(dropReasonBufferFull).Inc()
		return false
	}
}

// sendEvent encodes and queues an event for this session only. Encoding
// failures are logged, never propagated.
func (s *Session) sendEvent(eventType string, payload any) {
	data, err := encodeEvent(eventType, payload)
	if err != nil {
		slog.Error("Failed to encode event", "type", eventType, "session", s.id, "error", err)
		return
	}
	s.enqueue(data)
}

// setupReadConnection configures read deadlines and the pong handler.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.pongWait())); err != nil {
		slog.Warn("Error setting initial read deadline", "addr", s.addr, "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		s.markPong()
		if err := s.conn.SetReadDeadline(time.Now().Add(s.pongWait())); err != nil {
			slog.Warn("Error setting read deadline in pong handler", "addr", s.addr, "error", err)
		}
		return nil
	})
}

// logReadError logs an appropriate message for the error that ended the read
// loop.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("Inbound frame exceeded maximum size", "addr", s.addr, "limit", s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Info("Session disconnected", "session", s.id, "addr", s.addr, "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		slog.Info("Session connection closed", "session", s.id, "addr", s.addr)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		slog.Warn("Unexpected WebSocket error", "session", s.id, "addr", s.addr, "error", err)
	default:
		slog.Warn("WebSocket read error", "session", s.id, "addr", s.addr, "error", err)
	}
}

// allowFrame applies the per-connection inbound throttle.
func (s *Session) allowFrame() bool {
	if s.limiter != nil && !s.limiter.Allow() {
		slog.Warn("Rate limit exceeded; discarding frame", "session", s.id, "addr", s.addr)
		metricFramesDropped.WithLabelValues(dropReasonRateLimit).Inc()
		return false
	}
	return true
}

// readPump reads inbound frames and feeds them, in order, to the dispatcher.
// It owns the unregister trigger: when the loop ends for any reason the
// session is torn down exactly once through the hub.
func (s *Session) readPump() {
	defer func() {
		// During shutdown the hub loop is gone; teardown is handled there.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.ctx.Done():
		}
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Warn("Error closing connection in readPump", "session", s.id, "error", err)
		}
	}()

	s.setupReadConnection()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			break
		}

		if !s.allowFrame() {
			continue
		}

		s.hub.dispatcher.dispatch(s, raw)
	}
}

// writePump drains the send channel to the connection and runs the liveness
// ticker. Exiting closes the connection, which ends the read pump and drives
// the unregister path.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		s.closeConnection()
	}()

	for {
		select {
		case message, ok := <-s.send:
			if !s.handleOutbound(message, ok) {
				return
			}
		case <-ticker.C:
			if !s.probeLiveness() {
				return
			}
		}
	}
}

// closeConnection safely closes the WebSocket connection.
func (s *Session) closeConnection() {
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		slog.Warn("Error closing connection in writePump", "session", s.id, "error", err)
	}
}

// handleOutbound writes one queued event, then drains any backlog as
// additional frames, and returns false when the pump should stop. Each event
// goes out in its own text frame so clients can parse frames independently.
func (s *Session) handleOutbound(message []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Warn("Error setting write deadline", "session", s.id, "error", err)
		return false
	}

	if !ok {
		// Hub closed the channel: say goodbye.
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			slog.Warn("Error writing close message", "session", s.id, "error", err)
		}
		return false
	}

	if !s.writeFrame(message) {
		return false
	}

	n := len(s.send)
	for i := 0; i < n; i++ {
		if !s.writeFrame(<-s.send) {
			return false
		}
	}
	return true
}

func (s *Session) writeFrame(message []byte) bool {
	if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		slog.Warn("Error writing message", "session", s.id, "error", err)
		return false
	}
	return true
}

// probeLiveness advances the per-session liveness state machine. A probe is
// sent only when the previous one was answered; a tick that finds a probe
// still outstanding is the timeout transition and ends the pump, closing the
// connection.
func (s *Session) probeLiveness() bool {
	s.mu.Lock()
	if s.awaitingPong {
		s.mu.Unlock()
		slog.Warn("Liveness probe timed out; closing session", "session", s.id, "addr", s.addr)
		return false
	}
	s.awaitingPong = true
	s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Warn("Error setting write deadline for probe", "session", s.id, "error", err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			slog.Warn("Error writing liveness probe", "session", s.id, "error", err)
		}
		return false
	}
	return true
}
