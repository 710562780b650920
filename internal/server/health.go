package server

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/ytplay/internal/playback"
)

// HealthHandler reports liveness, the live session count and the committed playback state.
type HealthHandler struct {
	hub     *Hub
	machine *playback.Machine
}

// NewHealthHandler creates a handler reading from hub and machine.
func NewHealthHandler(hub *Hub, machine *playback.Machine) *HealthHandler {
	return &HealthHandler{hub: hub, machine: machine}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

// Health is the /healthz response body.
type Health struct {
	Status   string         `json:"status"`
	Sessions int            `json:"sessions"`
	State    playback.State `json:"state"`
}

// ServeHTTP writes the current [Health] as JSON.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{
		Status:   "ok",
		Sessions: h.hub.Count(),
		State:    h.machine.Snapshot(),
	})
}
