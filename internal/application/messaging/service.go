package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-realtime/internal/application/notification"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/go-api-realtime/internal/pkg/id"
)

// SendInput is a direct message from SenderID to RecipientID.
type SendInput struct {
	SenderID    int64
	RecipientID int64
	Content     string
}

type Service interface {
	SendMessage(ctx context.Context, in SendInput) (*domain.Message, error)
	GetMessage(ctx context.Context, userID int64, messageID string) (*domain.Message, error)
	MarkDelivered(ctx context.Context, userID int64, messageID string) (*domain.Message, error)
	MarkRead(ctx context.Context, userID int64, messageID string) (*domain.Message, error)
	GetConversation(ctx context.Context, userA, userB int64, limit int, cursor string) ([]domain.Message, string, error)
	GetUnread(ctx context.Context, userID int64) ([]domain.Message, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	GetRecentConversations(ctx context.Context, userID int64) ([]domain.Message, error)
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
}

type messageStore interface {
	Put(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	UpdateStatus(ctx context.Context, m *domain.Message) error
	ListConversation(ctx context.Context, a, b int64, limit int32, cursor string) ([]domain.Message, string, error)
	ListByRecipientStatus(ctx context.Context, recipientID int64, status domain.MessageStatus) ([]domain.Message, error)
	CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.MessageStatus) (int, error)
	ListInvolving(ctx context.Context, userID int64) ([]domain.Message, error)
}

type notifier interface {
	Create(ctx context.Context, in notification.CreateInput) (*domain.Notification, error)
}

type service struct {
	users     userStore
	repo      messageStore
	notifier  notifier
	publisher broker.Publisher
	now       func() time.Time
	newID     func() string
	pageSize  int
}

type ServiceDeps struct {
	UserRepo    userStore
	MessageRepo messageStore
	Notifier    notifier
	Publisher   broker.Publisher
	Now         func() time.Time // defaults to time.Now
	NewID       func() string    // defaults to id.New
	PageSize    int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:     deps.UserRepo,
		repo:      deps.MessageRepo,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		now:       deps.Now,
		newID:     deps.NewID,
		pageSize:  deps.PageSize,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = id.New
	}
	if s.pageSize <= 0 {
		s.pageSize = 20
	}
	return s
}

// SendMessage stores the message, raises a NEW_MESSAGE notification for the
// recipient and only then publishes on the messaging topic.
func (s *service) SendMessage(ctx context.Context, in SendInput) (*domain.Message, error) {
	if err := s.requireUser(ctx, in.SenderID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, in.RecipientID); err != nil {
		return nil, err
	}
	m, err := domain.NewMessage(s.newID(), in.SenderID, in.RecipientID, in.Content, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, &m); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_, err := s.notifier.Create(ctx, notification.CreateInput{
			RecipientID:   m.RecipientID,
			Type:          domain.NotificationNewMessage,
			Content:       fmt.Sprintf("New message from user %d", m.SenderID),
			RefEntityType: domain.RefEntityMessage,
			RefEntityID:   m.ID,
		})
		if err != nil {
			slog.Error("create message notification", "message_id", m.ID, "recipient_id", m.RecipientID, "err", err)
		}
	}

	s.publish(ctx, &m)
	return &m, nil
}

func (s *service) GetMessage(ctx context.Context, userID int64, messageID string) (*domain.Message, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != userID && m.RecipientID != userID {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrForbidden)
	}
	return m, nil
}

func (s *service) MarkDelivered(ctx context.Context, userID int64, messageID string) (*domain.Message, error) {
	return s.transition(ctx, userID, messageID, domain.Message.MarkDelivered)
}

func (s *service) MarkRead(ctx context.Context, userID int64, messageID string) (*domain.Message, error) {
	return s.transition(ctx, userID, messageID, domain.Message.MarkRead)
}

// transition applies step to the stored message on behalf of its recipient.
// A no-op step skips the write; a lost race returns the stored state.
func (s *service) transition(ctx context.Context, userID int64, messageID string, step func(domain.Message, time.Time) domain.Message) (*domain.Message, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.RecipientID != userID {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrForbidden)
	}
	next := step(*m, s.now())
	if next.Status == m.Status {
		return m, nil
	}
	err = s.repo.UpdateStatus(ctx, &next)
	if errors.Is(err, domain.ErrConflict) {
		return s.repo.Get(ctx, messageID)
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *service) GetConversation(ctx context.Context, userA, userB int64, limit int, cursor string) ([]domain.Message, string, error) {
	if err := s.requireUser(ctx, userA); err != nil {
		return nil, "", err
	}
	if err := s.requireUser(ctx, userB); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = s.pageSize
	}
	return s.repo.ListConversation(ctx, userA, userB, int32(limit), cursor)
}

func (s *service) GetUnread(ctx context.Context, userID int64) ([]domain.Message, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByRecipientStatus(ctx, userID, domain.MessageSent)
}

func (s *service) CountUnread(ctx context.Context, userID int64) (int, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	return s.repo.CountByRecipientStatus(ctx, userID, domain.MessageSent)
}

// GetRecentConversations returns the latest message per counterpart, newest first.
func (s *service) GetRecentConversations(ctx context.Context, userID int64) ([]domain.Message, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	all, err := s.repo.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}
	return latestPerCounterpart(all, userID), nil
}

// latestPerCounterpart expects ms newest first and keeps that order.
func latestPerCounterpart(ms []domain.Message, userID int64) []domain.Message {
	seen := make(map[int64]struct{})
	out := make([]domain.Message, 0)
	for _, m := range ms {
		other := m.Counterpart(userID)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (s *service) requireUser(ctx context.Context, userID int64) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return fmt.Errorf("lookup user %d: %w", userID, err)
	}
	return nil
}

func (s *service) publish(ctx context.Context, m *domain.Message) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(m.DTO())
	if err != nil {
		slog.Error("encode message", "message_id", m.ID, "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, broker.TopicMessaging, payload); err != nil {
		slog.Warn("publish message failed", "message_id", m.ID, "recipient_id", m.RecipientID, "err", err)
	}
}
