package realtime

import (
	"context"
	"testing"

	"github.com/go-api-realtime/internal/application/credential"
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

func (m *mockAuthenticator) IsRevoked(ctx context.Context, tok string) (bool, error) {
	args := m.Called(ctx, tok)
	return args.Bool(0), args.Error(1)
}

// newAuth answers the post-register revocation check with "not revoked".
func newAuth() *mockAuthenticator {
	auth := &mockAuthenticator{}
	auth.On("IsRevoked", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	return auth
}

func bearer(tok string) map[string]string {
	return map[string]string{HeaderAuthorization: "Bearer " + tok}
}

func TestHandshake_ValidCredentialRegistersOnce(t *testing.T) {
	auth := newAuth()
	auth.On("Authenticate", mock.Anything, "good.tok.en").Return(ident(7, "s-7"), nil).Once()
	reg := NewRegistry(nil)
	g := NewGate(auth, reg, GateConfig{})
	c := newFakeConn("c1")

	s, err := g.Handshake(context.Background(), bearer("good.tok.en"), c)
	require.NoError(t, err)
	assert.False(t, s.Anonymous())
	assert.Equal(t, int64(7), s.Identity.UserID)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, reg.Connections(7))
	auth.AssertExpectations(t)
}

func TestHandshake_RevokedCredentialRejected(t *testing.T) {
	auth := newAuth()
	auth.On("Authenticate", mock.Anything, "old.tok.en").Return(domain.Identity{}, credential.ErrRevoked)
	reg := NewRegistry(nil)

	s, err := NewGate(auth, reg, GateConfig{}).Handshake(context.Background(), bearer("old.tok.en"), newFakeConn("c"))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, credential.ErrRevoked)
	assert.Equal(t, 0, reg.Len())
}

func TestHandshake_HeaderNameIsCaseInsensitive(t *testing.T) {
	auth := newAuth()
	auth.On("Authenticate", mock.Anything, "a.b.c").Return(ident(1, "s"), nil)
	reg := NewRegistry(nil)

	_, err := NewGate(auth, reg, GateConfig{}).Handshake(context.Background(), map[string]string{"authorization": "bearer a.b.c"}, newFakeConn("c"))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestHandshake_NonBearerIsMalformed(t *testing.T) {
	auth := newAuth()
	reg := NewRegistry(nil)

	_, err := NewGate(auth, reg, GateConfig{}).Handshake(context.Background(), map[string]string{HeaderAuthorization: "Basic dXNlcg=="}, newFakeConn("c"))
	assert.ErrorIs(t, err, credential.ErrMalformed)
	auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestHandshake_MissingCredential(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := NewGate(&mockAuthenticator{}, reg, GateConfig{}).Handshake(context.Background(), nil, newFakeConn("c"))
	assert.ErrorIs(t, err, ErrCredentialRequired)

	s, err := NewGate(&mockAuthenticator{}, reg, GateConfig{AllowAnonymous: true}).Handshake(context.Background(), nil, newFakeConn("c"))
	require.NoError(t, err)
	assert.True(t, s.Anonymous())
	assert.Equal(t, 0, reg.Len())
}

func TestRelease_DeregistersAndIsIdempotent(t *testing.T) {
	auth := newAuth()
	auth.On("Authenticate", mock.Anything, "a.b.c").Return(ident(1, "s"), nil)
	reg := NewRegistry(nil)
	g := NewGate(auth, reg, GateConfig{})

	s, err := g.Handshake(context.Background(), bearer("a.b.c"), newFakeConn("c"))
	require.NoError(t, err)
	g.Release(s)
	g.Release(s)
	g.Release(nil)
	assert.Equal(t, 0, reg.Len())
}

func TestHandshake_LogoutDuringRegisterDropsConnection(t *testing.T) {
	auth := &mockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "a.b.c").Return(ident(4, "s-4"), nil)
	auth.On("IsRevoked", mock.Anything, "a.b.c").Return(true, nil).Once()
	reg := NewRegistry(nil)
	c := newFakeConn("c")

	s, err := NewGate(auth, reg, GateConfig{}).Handshake(context.Background(), bearer("a.b.c"), c)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, credential.ErrRevoked)
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, reg.Connections(4))
	auth.AssertExpectations(t)
}
