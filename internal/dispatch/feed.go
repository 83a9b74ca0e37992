// Package dispatch pushes live state to connected dispatcher dashboards over
// WebSocket. Every browser session still holds its own copy of the world; the
// feed is how those copies converge on the server's authoritative registries.
package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Envelope is the wire format for feed pushes.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// session wraps a connection with a write lock, gorilla/websocket allows only
// one concurrent writer.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(env)
}

// FeedHub tracks dispatcher sessions and fans events out to all of them.
type FeedHub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *slog.Logger
}

func NewFeedHub(logger *slog.Logger) *FeedHub {
	return &FeedHub{sessions: make(map[string]*session), logger: logger}
}

func (h *FeedHub) Add(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = &session{conn: conn}
}

func (h *FeedHub) Remove(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		_ = s.conn.Close()
	}
}

func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SendTo pushes one event to a single session, used to seed a freshly
// connected dashboard without replaying state to everyone else.
func (h *FeedHub) SendTo(id, event string, payload any) error {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s not connected", id)
	}
	if err := s.send(Envelope{Event: event, Payload: payload}); err != nil {
		h.Remove(id)
		return err
	}
	return nil
}

// Broadcast sends an event to every connected session. Sessions whose writes
// fail are dropped; a stuck dashboard must not back-pressure the simulators.
func (h *FeedHub) Broadcast(event string, payload any) {
	h.mu.RLock()
	targets := make(map[string]*session, len(h.sessions))
	for id, s := range h.sessions {
		targets[id] = s
	}
	h.mu.RUnlock()

	env := Envelope{Event: event, Payload: payload}
	for id, s := range targets {
		if err := s.send(env); err != nil {
			h.logger.Warn("feed send failed, dropping session", "session_id", id, "error", err)
			h.Remove(id)
		}
	}
}
