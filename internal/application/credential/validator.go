// Package credential turns bearer tokens into identities and maintains the
// revocation list consulted on every handshake and API call.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-realtime/internal/domain"
	jwtinfra "github.com/go-api-realtime/internal/infrastructure/jwt"
	"github.com/go-api-realtime/internal/pkg/token"
)

var (
	ErrMalformed = fmt.Errorf("malformed credential: %w", domain.ErrUnauthorized)
	ErrRevoked   = fmt.Errorf("revoked credential: %w", domain.ErrUnauthorized)
	ErrInvalid   = fmt.Errorf("invalid credential: %w", domain.ErrUnauthorized)
)

type verifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type revocationStore interface {
	Revoke(ctx context.Context, tok string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tok string) (bool, error)
}

type Validator struct {
	verifier    verifier
	revocations revocationStore
	now         func() time.Time
}

func NewValidator(v verifier, revocations revocationStore) *Validator {
	return &Validator{verifier: v, revocations: revocations, now: time.Now}
}

// Authenticate checks shape, then the revocation list, then the signature.
// Revocation is checked before signature so a revoked token never resolves.
func (v *Validator) Authenticate(ctx context.Context, tok string) (domain.Identity, error) {
	if !token.WellFormed(tok) {
		return domain.Identity{}, ErrMalformed
	}
	revoked, err := v.IsRevoked(ctx, tok)
	if err != nil {
		return domain.Identity{}, err
	}
	if revoked {
		return domain.Identity{}, ErrRevoked
	}
	claims, err := v.verifier.Verify(tok)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims.Identity(), nil
}

// IsRevoked reports whether tok is on the revocation list.
func (v *Validator) IsRevoked(ctx context.Context, tok string) (bool, error) {
	revoked, err := v.revocations.IsRevoked(ctx, tok)
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return revoked, nil
}

// Revoke lists tok until it would have expired anyway.
func (v *Validator) Revoke(ctx context.Context, tok string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(v.now())
	if ttl <= 0 {
		return nil
	}
	if err := v.revocations.Revoke(ctx, tok, ttl); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return nil
}

// Reason names the rejection class of err for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
