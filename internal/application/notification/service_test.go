package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) UpdateStatus(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) ListByRecipient(ctx context.Context, recipientID int64, limit int32, cursor string) ([]domain.Notification, string, error) {
	args := m.Called(ctx, recipientID, limit, cursor)
	return args.Get(0).([]domain.Notification), args.String(1), args.Error(2)
}
func (m *mockNotificationStore) ListByRecipientType(ctx context.Context, recipientID int64, typ domain.NotificationType) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, typ)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotificationStore) ListByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, status)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotificationStore) CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) (int, error) {
	args := m.Called(ctx, recipientID, status)
	return args.Int(0), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return m.Called(ctx, topic, payload).Error(0)
}

// --- helpers ---

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(us *mockUserStore, ns *mockNotificationStore, pub *mockPublisher) Service {
	deps := ServiceDeps{
		UserRepo:         us,
		NotificationRepo: ns,
		Now:              func() time.Time { return t0 },
		NewID:            func() string { return "n-1" },
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return NewService(deps)
}

func unread(id string, recipient int64) *domain.Notification {
	n, _ := domain.NewNotification(id, recipient, domain.NotificationNewMessage, "hi", domain.RefEntityMessage, "m-1", t0)
	return &n
}

// --- tests ---

func TestCreate_PersistsThenPublishes(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	ns := &mockNotificationStore{}
	pub := &mockPublisher{}

	var order []string
	ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(mock.Arguments) { order = append(order, "put") }).Return(nil)
	pub.On("Publish", mock.Anything, broker.TopicNotifications, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, "publish")
			var dto domain.NotificationDTO
			require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &dto))
			assert.Equal(t, int64(2), dto.RecipientID)
			assert.Equal(t, "NEW_MESSAGE", dto.Type)
		}).Return(nil)

	n, err := newService(us, ns, pub).Create(context.Background(), CreateInput{
		RecipientID: 2, Type: domain.NotificationNewMessage, Content: "New message", RefEntityType: domain.RefEntityMessage, RefEntityID: "m-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "n-1", n.ID)
	assert.Equal(t, domain.NotificationUnread, n.Status)
	assert.Equal(t, []string{"put", "publish"}, order)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCreate_UnknownRecipient(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(9)).Return(nil, domain.ErrNotFound)
	ns := &mockNotificationStore{}

	_, err := newService(us, ns, nil).Create(context.Background(), CreateInput{RecipientID: 9, Type: domain.NotificationSystemAnnouncement})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_PublishFailureIsSwallowed(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	ns := &mockNotificationStore{}
	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	n, err := newService(us, ns, pub).Create(context.Background(), CreateInput{RecipientID: 2, Type: domain.NotificationRecruitmentUpdate, Content: "x"})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestMarkRead_OtherUsersNotificationForbidden(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(3)).Return(&domain.User{UserID: 3}, nil)
	ns := &mockNotificationStore{}
	ns.On("Get", mock.Anything, "n-1").Return(unread("n-1", 2), nil)

	_, err := newService(us, ns, nil).MarkRead(context.Background(), 3, "n-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	ns.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestMarkRead_TransitionsAndPersists(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	ns := &mockNotificationStore{}
	ns.On("Get", mock.Anything, "n-1").Return(unread("n-1", 2), nil)
	ns.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Status == domain.NotificationRead && n.ReadAt != nil
	})).Return(nil)

	n, err := newService(us, ns, nil).MarkRead(context.Background(), 2, "n-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationRead, n.Status)
	ns.AssertExpectations(t)
}

func TestMarkRead_AlreadyReadIsNoop(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	read := unread("n-1", 2).MarkRead(t0)
	ns := &mockNotificationStore{}
	ns.On("Get", mock.Anything, "n-1").Return(&read, nil)

	n, err := newService(us, ns, nil).MarkRead(context.Background(), 2, "n-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationRead, n.Status)
	ns.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestMarkAllRead_CountsOnlyTransitions(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	ns := &mockNotificationStore{}
	ns.On("ListByRecipientStatus", mock.Anything, int64(2), domain.NotificationUnread).
		Return([]domain.Notification{*unread("a", 2), *unread("b", 2), *unread("c", 2)}, nil)
	ns.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool { return n.ID == "b" })).
		Return(domain.ErrConflict)
	ns.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)

	n, err := newService(us, ns, nil).MarkAllRead(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListByType_RejectsUnknownType(t *testing.T) {
	_, err := newService(&mockUserStore{}, &mockNotificationStore{}, nil).ListByType(context.Background(), 2, "BOGUS")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCountUnread_RequiresUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(4)).Return(nil, domain.ErrNotFound)
	ns := &mockNotificationStore{}

	_, err := newService(us, ns, nil).CountUnread(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ns.AssertNotCalled(t, "CountByRecipientStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestListForRecipient_DefaultsPageSize(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, int64(2)).Return(&domain.User{UserID: 2}, nil)
	ns := &mockNotificationStore{}
	ns.On("ListByRecipient", mock.Anything, int64(2), int32(20), "").Return([]domain.Notification{}, "", nil)

	_, next, err := newService(us, ns, nil).ListForRecipient(context.Background(), 2, 0, "")
	require.NoError(t, err)
	assert.Empty(t, next)
	ns.AssertExpectations(t)
}
