package handler

import (
	"net/http"

	"github.com/go-api-realtime/internal/application/session"
	"github.com/go-api-realtime/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Current(r.Context(), identity))
}

// Logout revokes the presented bearer and closes every socket bound to its session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Logout(r.Context(), middleware.TokenFromContext(r.Context()), identity)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
