package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-realtime/internal/application/notification"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// CreateNotificationRequest is the body of the admin-only POST /v1/notifications.
type CreateNotificationRequest struct {
	RecipientID   int64  `json:"recipientId" validate:"required,gt=0"`
	Type          string `json:"type" validate:"required,oneof=NEW_MESSAGE SYSTEM_ANNOUNCEMENT RECRUITMENT_UPDATE"`
	Content       string `json:"content" validate:"required,notblank,max=2000"`
	RefEntityType string `json:"refEntityType" validate:"omitempty,max=64"`
	RefEntityID   string `json:"refEntityId" validate:"omitempty,max=128"`
}

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	ns, next, err := h.svc.ListForRecipient(r.Context(), identity.UserID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.NotificationDTO]{Data: domain.NotificationDTOs(ns), NextCursor: next})
}

func (h *NotificationHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ns, err := h.svc.ListByType(r.Context(), identity.UserID, domain.NotificationType(chi.URLParam(r, "type")))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.NotificationDTO]{Data: domain.NotificationDTOs(ns)})
}

func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
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

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Get(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.DTO())
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.DTO())
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: n})
}

// Create lets an administrator push a notification to any user.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	n, err := h.svc.Create(r.Context(), notification.CreateInput{
		RecipientID:   req.RecipientID,
		Type:          domain.NotificationType(req.Type),
		Content:       req.Content,
		RefEntityType: req.RefEntityType,
		RefEntityID:   req.RefEntityID,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n.DTO())
}
