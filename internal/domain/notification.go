package domain

import (
	"fmt"
	"time"
)

// Notification tells a user that something happened, e.g. a new message.
// Like Message, it is transitioned by copy.
type Notification struct {
	ID            string
	RecipientID   int64
	Type          NotificationType
	Content       string
	Status        NotificationStatus
	RefEntityType string
	RefEntityID   string
	CreatedAt     time.Time
	ReadAt        *time.Time
}

// Reference kinds used in RefEntityType.
const RefEntityMessage = "message"

// NewNotification validates its inputs and returns an UNREAD notification.
func NewNotification(id string, recipientID int64, typ NotificationType, content, refEntityType, refEntityID string, createdAt time.Time) (Notification, error) {
	if id == "" {
		return Notification{}, fmt.Errorf("notification id is required: %w", ErrBadRequest)
	}
	if recipientID <= 0 {
		return Notification{}, fmt.Errorf("recipient id must be positive: %w", ErrBadRequest)
	}
	if !typ.Valid() {
		return Notification{}, fmt.Errorf("unknown notification type %q: %w", typ, ErrBadRequest)
	}
	return Notification{
		ID:            id,
		RecipientID:   recipientID,
		Type:          typ,
		Content:       content,
		Status:        NotificationUnread,
		RefEntityType: refEntityType,
		RefEntityID:   refEntityID,
		CreatedAt:     createdAt.UTC(),
	}, nil
}

// MarkRead returns a READ copy; already-read notifications come back unchanged.
func (n Notification) MarkRead(at time.Time) Notification {
	if n.Status == NotificationRead {
		return n
	}
	out := n
	t := at.UTC()
	out.Status = NotificationRead
	out.ReadAt = &t
	return out
}

// Equal compares notifications by identity only.
func (n Notification) Equal(other Notification) bool { return n.ID == other.ID }

type NotificationDTO struct {
	ID            string     `json:"id"`
	RecipientID   int64      `json:"recipientId"`
	Type          string     `json:"type"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	RefEntityType string     `json:"refEntityType,omitempty"`
	RefEntityID   string     `json:"refEntityId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
}

func (n Notification) DTO() NotificationDTO {
	return NotificationDTO{
		ID:            n.ID,
		RecipientID:   n.RecipientID,
		Type:          string(n.Type),
		Content:       n.Content,
		Status:        string(n.Status),
		RefEntityType: n.RefEntityType,
		RefEntityID:   n.RefEntityID,
		CreatedAt:     n.CreatedAt,
		ReadAt:        n.ReadAt,
	}
}

func NotificationDTOs(ns []Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.DTO())
	}
	return out
}
