package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// liveness reports the number of registered realtime connections.
type liveness interface {
	Len() int
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	registry liveness
}

func NewHealthHandler(registry liveness) *HealthHandler { return &HealthHandler{registry: registry} }

type statusEnvelope struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Ping answers /health-check/ping with pong and /health-check/status with
// the live connection count.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		writeJSON(w, http.StatusOK, statusEnvelope{Status: "ok", Connections: h.registry.Len()})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
