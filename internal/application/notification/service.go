package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/go-api-realtime/internal/pkg/id"
)

// CreateInput describes a notification to raise for a single recipient.
type CreateInput struct {
	RecipientID   int64
	Type          domain.NotificationType
	Content       string
	RefEntityType string
	RefEntityID   string
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*domain.Notification, error)
	Get(ctx context.Context, userID int64, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, userID int64, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
	ListForRecipient(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error)
	ListByType(ctx context.Context, userID int64, typ domain.NotificationType) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	UpdateStatus(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, limit int32, cursor string) ([]domain.Notification, string, error)
	ListByRecipientType(ctx context.Context, recipientID int64, typ domain.NotificationType) ([]domain.Notification, error)
	ListByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) ([]domain.Notification, error)
	CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) (int, error)
}

type service struct {
	users        userStore
	repo         notificationStore
	publisher    broker.Publisher
	now          func() time.Time
	newID        func() string
	defaultLimit int
}

type ServiceDeps struct {
	UserRepo         userStore
	NotificationRepo notificationStore
	Publisher        broker.Publisher
	Now              func() time.Time // defaults to time.Now
	NewID            func() string    // defaults to id.New
	PageSize         int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:        deps.UserRepo,
		repo:         deps.NotificationRepo,
		publisher:    deps.Publisher,
		now:          deps.Now,
		newID:        deps.NewID,
		defaultLimit: deps.PageSize,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = id.New
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = 20
	}
	return s
}

func (s *service) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	if err := s.requireUser(ctx, in.RecipientID); err != nil {
		return nil, err
	}
	n, err := domain.NewNotification(s.newID(), in.RecipientID, in.Type, in.Content, in.RefEntityType, in.RefEntityID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, &n); err != nil {
		return nil, err
	}
	s.publish(ctx, &n)
	return &n, nil
}

func (s *service) Get(ctx context.Context, userID int64, notificationID string) (*domain.Notification, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.owned(ctx, userID, notificationID)
}

func (s *service) MarkRead(ctx context.Context, userID int64, notificationID string) (*domain.Notification, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	n, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	return s.markRead(ctx, n)
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	unread, err := s.repo.ListByRecipientStatus(ctx, userID, domain.NotificationUnread)
	if err != nil {
		return 0, err
	}
	marked := 0
	for i := range unread {
		read := unread[i].MarkRead(s.now())
		err := s.repo.UpdateStatus(ctx, &read)
		switch {
		case err == nil:
			marked++
		case errors.Is(err, domain.ErrConflict):
			// read concurrently
		default:
			return marked, err
		}
	}
	return marked, nil
}

func (s *service) ListForRecipient(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.repo.ListByRecipient(ctx, userID, int32(limit), cursor)
}

func (s *service) ListByType(ctx context.Context, userID int64, typ domain.NotificationType) ([]domain.Notification, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", typ, domain.ErrBadRequest)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByRecipientType(ctx, userID, typ)
}

func (s *service) CountUnread(ctx context.Context, userID int64) (int, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	return s.repo.CountByRecipientStatus(ctx, userID, domain.NotificationUnread)
}

func (s *service) requireUser(ctx context.Context, userID int64) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return fmt.Errorf("lookup user %d: %w", userID, err)
	}
	return nil
}

func (s *service) owned(ctx context.Context, userID int64, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrForbidden)
	}
	return n, nil
}

func (s *service) markRead(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	read := n.MarkRead(s.now())
	if read.Status == n.Status {
		return n, nil
	}
	err := s.repo.UpdateStatus(ctx, &read)
	if errors.Is(err, domain.ErrConflict) {
		return s.repo.Get(ctx, n.ID)
	}
	if err != nil {
		return nil, err
	}
	return &read, nil
}

// publish pushes the notification to live sessions. The row is already stored,
// so a failed publish only costs the real-time push.
func (s *service) publish(ctx context.Context, n *domain.Notification) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(n.DTO())
	if err != nil {
		slog.Error("encode notification", "notification_id", n.ID, "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, broker.TopicNotifications, payload); err != nil {
		slog.Warn("publish notification failed", "notification_id", n.ID, "recipient_id", n.RecipientID, "err", err)
	}
}
