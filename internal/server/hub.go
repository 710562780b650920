package server

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Member is anything the [Hub] can fan frames out to.
type Member interface {
	ID() string
	// Deliver enqueues one encoded frame without blocking, reporting whether it was accepted.
	Deliver(frame []byte) bool
	// Close stops accepting frames and lets pending ones drain.
	Close()
}

// Hub is the set of live sessions.
type Hub struct {
	mu      sync.RWMutex
	members map[string]Member
	closed  bool
	logger  *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		members: make(map[string]Member),
		logger:  shared.WithLogger(logger, "component", "hub"),
	}
}

// Register adds m to the live set. It returns false once the hub is closed.
func (h *Hub) Register(m Member) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.members[m.ID()] = m
	h.logger.Debug("session registered", "session", m.ID(), "sessions", len(h.members))
	return true
}

// Unregister removes m and closes it. Unknown members are ignored.
func (h *Hub) Unregister(m Member) {
	h.mu.Lock()
	current, ok := h.members[m.ID()]
	if ok && current == m {
		delete(h.members, m.ID())
	}
	count := len(h.members)
	h.mu.Unlock()

	if ok && current == m {
		m.Close()
		h.logger.Debug("session unregistered", "session", m.ID(), "sessions", count)
	}
}

// Broadcast encodes env once and enqueues it to every member live at the time of the call.
//
// Members whose queue is full or closed are dropped; the others still receive the frame. Returns the number of members
// that accepted it.
func (h *Hub) Broadcast(env protocol.Envelope) int {
	frame, err := protocol.Encode(env)
	if err != nil {
		h.logger.Error("failed to encode broadcast", "command", env.Command, "error", err)
		return 0
	}

	h.mu.RLock()
	live := make([]Member, 0, len(h.members))
	for _, m := range h.members {
		live = append(live, m)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, m := range live {
		if m.Deliver(frame) {
			delivered++
			continue
		}
		h.logger.Warn("dropping unresponsive session", "session", m.ID())
		h.Unregister(m)
	}
	return delivered
}

// Count returns the number of live members.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// Close closes every member and rejects later registrations. Pending frames still drain.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	members := h.members
	h.members = make(map[string]Member)
	h.mu.Unlock()

	for _, m := range members {
		m.Close()
	}
	h.logger.Debug("hub closed", "sessions", len(members))
}
