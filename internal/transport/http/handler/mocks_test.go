package handler

import (
	"context"
	"net/http"

	"github.com/go-api-realtime/internal/application/messaging"
	"github.com/go-api-realtime/internal/application/notification"
	"github.com/go-api-realtime/internal/application/session"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockMessagingSvc struct{ mock.Mock }

func (m *mockMessagingSvc) SendMessage(ctx context.Context, in messaging.SendInput) (*domain.Message, error) {
	args := m.Called(ctx, in)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockMessagingSvc) GetMessage(ctx context.Context, userID int64, id string) (*domain.Message, error) {
	args := m.Called(ctx, userID, id)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockMessagingSvc) MarkDelivered(ctx context.Context, userID int64, id string) (*domain.Message, error) {
	args := m.Called(ctx, userID, id)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockMessagingSvc) MarkRead(ctx context.Context, userID int64, id string) (*domain.Message, error) {
	args := m.Called(ctx, userID, id)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockMessagingSvc) GetConversation(ctx context.Context, a, b int64, limit int, cursor string) ([]domain.Message, string, error) {
	args := m.Called(ctx, a, b, limit, cursor)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.String(1), args.Error(2)
}

func (m *mockMessagingSvc) GetUnread(ctx context.Context, userID int64) ([]domain.Message, error) {
	args := m.Called(ctx, userID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

func (m *mockMessagingSvc) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessagingSvc) GetRecentConversations(ctx context.Context, userID int64) ([]domain.Message, error) {
	args := m.Called(ctx, userID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) Create(ctx context.Context, in notification.CreateInput) (*domain.Notification, error) {
	args := m.Called(ctx, in)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationSvc) Get(ctx context.Context, userID int64, id string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, id)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationSvc) MarkRead(ctx context.Context, userID int64, id string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, id)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationSvc) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationSvc) ListForRecipient(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error) {
	args := m.Called(ctx, userID, limit, cursor)
	ns, _ := args.Get(0).([]domain.Notification)
	return ns, args.String(1), args.Error(2)
}

func (m *mockNotificationSvc) ListByType(ctx context.Context, userID int64, typ domain.NotificationType) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, typ)
	ns, _ := args.Get(0).([]domain.Notification)
	return ns, args.Error(1)
}

func (m *mockNotificationSvc) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Current(ctx context.Context, identity domain.Identity) session.Info {
	return m.Called(ctx, identity).Get(0).(session.Info)
}

func (m *mockSessionSvc) Logout(ctx context.Context, tok string, identity domain.Identity) (*session.LogoutResult, error) {
	args := m.Called(ctx, tok, identity)
	res, _ := args.Get(0).(*session.LogoutResult)
	return res, args.Error(1)
}

// --- helpers ---

// authed attaches the identity the Auth middleware would have resolved.
func authed(r *http.Request, userID int64, role string) *http.Request {
	identity := domain.Identity{UserID: userID, Role: role, SessionID: "sess1"}
	return r.WithContext(middleware.WithIdentity(r.Context(), identity, "tok-"+role))
}

// withParam injects a chi URL param into the request context.
func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
