package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-realtime/internal/application/messaging"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// SendMessageRequest is the body of POST /v1/messages. The sender is always
// the authenticated caller.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipientId" validate:"required,gt=0"`
	Content     string `json:"content" validate:"required,notblank,max=2000"`
}

// MessageHandler handles message endpoints.
type MessageHandler struct {
	svc messaging.Service
}

func NewMessageHandler(svc messaging.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	m, err := h.svc.SendMessage(r.Context(), messaging.SendInput{
		SenderID:    identity.UserID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m.DTO())
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetMessage(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.DTO())
}

func (h *MessageHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	m, err := h.svc.MarkDelivered(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.DTO())
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	m, err := h.svc.MarkRead(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.DTO())
}

func (h *MessageHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.GetUnread(r.Context(), identity.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.MessageDTO]{Data: domain.MessageDTOs(msgs)})
}

func (h *MessageHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.svc.CountUnread(r.Context(), identity.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: n})
}
