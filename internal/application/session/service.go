package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-realtime/internal/domain"
)

// Info describes the caller's session and how many live connections it holds.
type Info struct {
	UserID          int64     `json:"userId"`
	Role            string    `json:"role"`
	SessionID       string    `json:"sessionId"`
	ExpiresAt       time.Time `json:"expiresAt"`
	LiveConnections int       `json:"liveConnections"`
}

type LogoutResult struct {
	Disconnected int `json:"disconnected"`
}

type Service interface {
	Current(ctx context.Context, identity domain.Identity) Info
	Logout(ctx context.Context, tok string, identity domain.Identity) (*LogoutResult, error)
}

type revoker interface {
	Revoke(ctx context.Context, tok string, expiresAt time.Time) error
}

type connectionRegistry interface {
	Connections(userID int64) int
	DisconnectSession(sessionID string) int
}

type service struct {
	revoker  revoker
	registry connectionRegistry
}

type ServiceDeps struct {
	Revoker  revoker
	Registry connectionRegistry
}

func NewService(deps ServiceDeps) Service {
	return &service{revoker: deps.Revoker, registry: deps.Registry}
}

func (s *service) Current(_ context.Context, identity domain.Identity) Info {
	return Info{
		UserID:          identity.UserID,
		Role:            identity.Role,
		SessionID:       identity.SessionID,
		ExpiresAt:       identity.ExpiresAt,
		LiveConnections: s.registry.Connections(identity.UserID),
	}
}

// Logout revokes the presented credential and then closes every live
// connection bound to its session.
func (s *service) Logout(ctx context.Context, tok string, identity domain.Identity) (*LogoutResult, error) {
	if identity.Anonymous() {
		return nil, fmt.Errorf("logout without identity: %w", domain.ErrUnauthorized)
	}
	if err := s.revoker.Revoke(ctx, tok, identity.ExpiresAt); err != nil {
		return nil, err
	}
	n := 0
	if identity.SessionID != "" {
		n = s.registry.DisconnectSession(identity.SessionID)
	}
	slog.Info("session logged out", "user_id", identity.UserID, "session_id", identity.SessionID, "disconnected", n)
	return &LogoutResult{Disconnected: n}, nil
}
