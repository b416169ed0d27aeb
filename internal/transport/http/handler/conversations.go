package handler

import (
	"net/http"
	"strconv"

	"github.com/go-api-realtime/internal/application/messaging"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ConversationHandler serves conversation history and the inbox overview.
type ConversationHandler struct {
	svc messaging.Service
}

func NewConversationHandler(svc messaging.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// Recent lists the newest message of every conversation the caller takes part in.
func (h *ConversationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.GetRecentConversations(r.Context(), identity.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.MessageDTO]{Data: domain.MessageDTOs(msgs)})
}

// History pages through the conversation between the caller and {userId}, newest first.
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	other, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || other <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	msgs, next, err := h.svc.GetConversation(r.Context(), identity.UserID, other, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.MessageDTO]{Data: domain.MessageDTOs(msgs), NextCursor: next})
}
