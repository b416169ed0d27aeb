package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageContentLength is the upper bound on message content, in characters.
const MaxMessageContentLength = 2000

// Message is a unit of direct communication between two users.
//
// Message values are never mutated after construction: MarkDelivered and
// MarkRead return a new value and leave the receiver untouched.
type Message struct {
	ID          string
	SenderID    int64
	RecipientID int64
	Content     string
	Status      MessageStatus
	SentAt      time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

// NewMessage validates its inputs and returns a Message in SENT state.
func NewMessage(id string, senderID, recipientID int64, content string, sentAt time.Time) (Message, error) {
	if id == "" {
		return Message{}, fmt.Errorf("message id is required: %w", ErrBadRequest)
	}
	if senderID <= 0 {
		return Message{}, fmt.Errorf("sender id must be positive: %w", ErrBadRequest)
	}
	if recipientID <= 0 {
		return Message{}, fmt.Errorf("recipient id must be positive: %w", ErrBadRequest)
	}
	if err := validateContent(content); err != nil {
		return Message{}, err
	}
	return Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Status:      MessageSent,
		SentAt:      sentAt.UTC(),
	}, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content must not be blank: %w", ErrBadRequest)
	}
	if utf8.RuneCountInString(content) > MaxMessageContentLength {
		return fmt.Errorf("content exceeds %d characters: %w", MaxMessageContentLength, ErrBadRequest)
	}
	return nil
}

// MarkDelivered returns a copy in DELIVERED state. A message already
// delivered or read is returned unchanged.
func (m Message) MarkDelivered(at time.Time) Message {
	if m.Status.AtLeast(MessageDelivered) {
		return m
	}
	out := m
	t := at.UTC()
	out.Status = MessageDelivered
	out.DeliveredAt = &t
	return out
}

// MarkRead returns a copy in READ state. Reading implies delivery, so an
// unset DeliveredAt is back-filled with the read time.
func (m Message) MarkRead(at time.Time) Message {
	if m.Status.AtLeast(MessageRead) {
		return m
	}
	out := m
	t := at.UTC()
	out.Status = MessageRead
	out.ReadAt = &t
	if out.DeliveredAt == nil {
		d := t
		out.DeliveredAt = &d
	}
	return out
}

// Equal compares messages by identity only.
func (m Message) Equal(other Message) bool { return m.ID == other.ID }

// Counterpart returns the other participant from userID's point of view.
func (m Message) Counterpart(userID int64) int64 {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// MessageDTO is the flat public projection published on the broker and
// returned by the API.
type MessageDTO struct {
	ID          string     `json:"id"`
	SenderID    int64      `json:"senderId"`
	RecipientID int64      `json:"recipientId"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	SentAt      time.Time  `json:"sentAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

func (m Message) DTO() MessageDTO {
	return MessageDTO{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Status:      string(m.Status),
		SentAt:      m.SentAt,
		DeliveredAt: m.DeliveredAt,
		ReadAt:      m.ReadAt,
	}
}

// MessageDTOs projects a slice of messages.
func MessageDTOs(ms []Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.DTO())
	}
	return out
}
