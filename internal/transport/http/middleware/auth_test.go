package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Authenticate(ctx context.Context, tok string) (domain.Identity, error) {
	args := m.Called(ctx, tok)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth_MissingHeader(t *testing.T) {
	a := &mockAuthenticator{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	a.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuth_NonBearerScheme(t *testing.T) {
	a := &mockAuthenticator{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_RejectedToken(t *testing.T) {
	a := &mockAuthenticator{}
	a.On("Authenticate", mock.Anything, "revoked").
		Return(domain.Identity{}, fmt.Errorf("token revoked: %w", domain.ErrUnauthorized))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	rr := httptest.NewRecorder()
	Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "revoked")
}

func TestAuth_BackendFailure(t *testing.T) {
	a := &mockAuthenticator{}
	a.On("Authenticate", mock.Anything, "tok").Return(domain.Identity{}, errors.New("redis down"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAuth_ValidToken_InjectsIdentity(t *testing.T) {
	a := &mockAuthenticator{}
	want := domain.Identity{UserID: 7, Role: domain.RoleUser, SessionID: "sess1"}
	a.On("Authenticate", mock.Anything, "good").Return(want, nil)

	var (
		got    domain.Identity
		gotOK  bool
		gotTok string
	)
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotOK = IdentityFromContext(r.Context())
		gotTok = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	Auth(a)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, gotOK)
	assert.Equal(t, want, got)
	assert.Equal(t, "good", gotTok)
}

func TestIdentityFromContext_Empty(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, TokenFromContext(context.Background()))
}
