package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-api-realtime/internal/domain"
)

type NotificationRepo struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []domain.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{byID: make(map[string]int)}
}

func (r *NotificationRepo) Put(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[n.ID]; exists {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	r.byID[n.ID] = len(r.items)
	r.items = append(r.items, *n)
	return nil
}

func (r *NotificationRepo) Get(_ context.Context, notificationID string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	n := r.items[i]
	return &n, nil
}

func (r *NotificationRepo) UpdateStatus(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[n.ID]
	if !ok {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrNotFound)
	}
	if r.items[i].Status == domain.NotificationRead {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	r.items[i].Status = n.Status
	r.items[i].ReadAt = n.ReadAt
	return nil
}

func (r *NotificationRepo) ListByRecipient(_ context.Context, recipientID int64, limit int32, cursor string) ([]domain.Notification, string, error) {
	r.mu.RLock()
	all := r.newestFirst(func(n domain.Notification) bool { return n.RecipientID == recipientID })
	r.mu.RUnlock()
	return page(all, limit, cursor)
}

func (r *NotificationRepo) ListByRecipientType(_ context.Context, recipientID int64, typ domain.NotificationType) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(n domain.Notification) bool {
		return n.RecipientID == recipientID && n.Type == typ
	}), nil
}

func (r *NotificationRepo) ListByRecipientStatus(_ context.Context, recipientID int64, status domain.NotificationStatus) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(n domain.Notification) bool {
		return n.RecipientID == recipientID && n.Status == status
	}), nil
}

func (r *NotificationRepo) CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) (int, error) {
	ns, err := r.ListByRecipientStatus(ctx, recipientID, status)
	return len(ns), err
}

func (r *NotificationRepo) newestFirst(keep func(domain.Notification) bool) []domain.Notification {
	out := make([]domain.Notification, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		if keep(r.items[i]) {
			out = append(out, r.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
