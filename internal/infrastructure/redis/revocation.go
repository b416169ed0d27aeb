package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-realtime/internal/pkg/token"
	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

// RevocationStore keeps revoked bearer credentials in Redis. Entries expire
// with the credential, so the set never outgrows the live token population.
type RevocationStore struct {
	client *redis.Client
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

func (s *RevocationStore) Revoke(ctx context.Context, tok string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.client.Set(ctx, revokedPrefix+token.Fingerprint(tok), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tok string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+token.Fingerprint(tok)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
	return n > 0, nil
}
