package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-api-realtime/internal/domain"
)

// MessageRepo keeps messages in insertion order behind a mutex.
type MessageRepo struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []domain.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{byID: make(map[string]int)}
}

func (r *MessageRepo) Put(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[m.ID]; exists {
		return fmt.Errorf("message %s: %w", m.ID, domain.ErrConflict)
	}
	r.byID[m.ID] = len(r.items)
	r.items = append(r.items, *m)
	return nil
}

func (r *MessageRepo) Get(_ context.Context, messageID string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	m := r.items[i]
	return &m, nil
}

// UpdateStatus only moves a stored message strictly forward. A delivery time
// once stored is never replaced.
func (r *MessageRepo) UpdateStatus(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[m.ID]
	if !ok {
		return fmt.Errorf("message %s: %w", m.ID, domain.ErrNotFound)
	}
	stored := r.items[i]
	if stored.Status.AtLeast(m.Status) {
		return fmt.Errorf("message %s status %s: %w", m.ID, m.Status, domain.ErrConflict)
	}
	stored.Status = m.Status
	if stored.DeliveredAt == nil {
		stored.DeliveredAt = m.DeliveredAt
	}
	stored.ReadAt = m.ReadAt
	r.items[i] = stored
	return nil
}

func (r *MessageRepo) ListConversation(_ context.Context, a, b int64, limit int32, cursor string) ([]domain.Message, string, error) {
	r.mu.RLock()
	all := r.newestFirst(func(m domain.Message) bool {
		return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
	})
	r.mu.RUnlock()
	return page(all, limit, cursor)
}

func (r *MessageRepo) ListByRecipientStatus(_ context.Context, recipientID int64, status domain.MessageStatus) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(m domain.Message) bool {
		return m.RecipientID == recipientID && m.Status == status
	}), nil
}

func (r *MessageRepo) CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.MessageStatus) (int, error) {
	ms, err := r.ListByRecipientStatus(ctx, recipientID, status)
	return len(ms), err
}

func (r *MessageRepo) ListInvolving(_ context.Context, userID int64) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(m domain.Message) bool {
		return m.SenderID == userID || m.RecipientID == userID
	}), nil
}

// newestFirst must be called with r.mu held.
func (r *MessageRepo) newestFirst(keep func(domain.Message) bool) []domain.Message {
	out := make([]domain.Message, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		if keep(r.items[i]) {
			out = append(out, r.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out
}
