package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-realtime/internal/application/credential"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/metrics"
	"github.com/go-api-realtime/internal/pkg/token"
)

// HeaderAuthorization carries the bearer credential on the connect frame.
const HeaderAuthorization = "Authorization"

var ErrCredentialRequired = fmt.Errorf("credential required: %w", domain.ErrUnauthorized)

type authenticator interface {
	Authenticate(ctx context.Context, tok string) (domain.Identity, error)
	IsRevoked(ctx context.Context, tok string) (bool, error)
}

// Session is the outcome of a successful handshake. Its identity never
// changes for the lifetime of the connection.
type Session struct {
	Identity   domain.Identity
	ConnID     string
	registered bool
}

// Anonymous reports whether the session carries no user and receives nothing.
func (s *Session) Anonymous() bool { return !s.registered }

// Gate authenticates a connection exactly once, at handshake.
type Gate struct {
	auth           authenticator
	registry       *Registry
	allowAnonymous bool
	metrics        *metrics.Metrics
}

type GateConfig struct {
	AllowAnonymous bool
	Metrics        *metrics.Metrics
}

func NewGate(auth authenticator, registry *Registry, cfg GateConfig) *Gate {
	return &Gate{auth: auth, registry: registry, allowAnonymous: cfg.AllowAnonymous, metrics: cfg.Metrics}
}

// Handshake reads the bearer credential from headers, rejects malformed,
// revoked or unverifiable credentials and registers conn under the resolved
// identity. A missing credential is rejected unless anonymous connections
// are allowed, in which case conn is accepted but never registered.
func (g *Gate) Handshake(ctx context.Context, headers map[string]string, conn Conn) (*Session, error) {
	raw := lookupHeader(headers, HeaderAuthorization)
	if raw == "" {
		if !g.allowAnonymous {
			g.metrics.Handshake("missing")
			return nil, ErrCredentialRequired
		}
		slog.Warn("anonymous connection accepted", "conn_id", conn.ID())
		g.metrics.Handshake("anonymous")
		return &Session{ConnID: conn.ID()}, nil
	}

	tok, ok := token.FromHeader(raw)
	if !ok {
		g.metrics.Handshake("malformed")
		return nil, credential.ErrMalformed
	}
	identity, err := g.auth.Authenticate(ctx, tok)
	if err != nil {
		reason := credential.Reason(err)
		g.metrics.Handshake(reason)
		slog.Info("handshake rejected", "conn_id", conn.ID(), "reason", reason)
		return nil, err
	}
	if err := g.registry.Register(identity, conn); err != nil {
		g.metrics.Handshake("error")
		return nil, err
	}
	// A logout that revoked tok after Authenticate but before Register has
	// already swept the registry, so look again now that conn is visible.
	if err := g.recheck(ctx, tok); err != nil {
		g.registry.Unregister(conn.ID())
		reason := credential.Reason(err)
		g.metrics.Handshake(reason)
		slog.Info("handshake rejected after register", "conn_id", conn.ID(), "session_id", identity.SessionID, "reason", reason)
		return nil, err
	}
	g.metrics.Handshake("accepted")
	slog.Info("connection registered", "conn_id", conn.ID(), "user_id", identity.UserID, "session_id", identity.SessionID)
	return &Session{Identity: identity, ConnID: conn.ID(), registered: true}, nil
}

func (g *Gate) recheck(ctx context.Context, tok string) error {
	revoked, err := g.auth.IsRevoked(ctx, tok)
	if err != nil {
		return err
	}
	if revoked {
		return credential.ErrRevoked
	}
	return nil
}

// Release deregisters the session's connection. Safe to call more than once.
func (g *Gate) Release(s *Session) {
	if s == nil || !s.registered {
		return
	}
	if g.registry.Unregister(s.ConnID) {
		slog.Info("connection released", "conn_id", s.ConnID, "user_id", s.Identity.UserID)
	}
}

func lookupHeader(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
