package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-api-realtime/internal/pkg/token"
)

// RevocationStore is a process-local revocation list. Entries expire with the token.
type RevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *RevocationStore) Revoke(_ context.Context, tok string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token.Fingerprint(tok)] = s.now().Add(ttl)
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tok string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := token.Fingerprint(tok)
	exp, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}
