package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-api-realtime/internal/domain"
)

// UserRepo is an in-process user directory.
type UserRepo struct {
	mu    sync.RWMutex
	users map[int64]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[int64]domain.User)}
}

func (r *UserRepo) Put(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = *u
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return &u, nil
}

// ParseSeedUsers reads "1:alice@example.com,2:bob@example.com:admin" into
// users. The username is the local part of the email; role defaults to user.
func ParseSeedUsers(list string, now time.Time) ([]domain.User, error) {
	var out []domain.User
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idPart, email, ok := strings.Cut(entry, ":")
		if !ok || email == "" {
			return nil, fmt.Errorf("seed entry %q: want id:email", entry)
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("seed entry %q: invalid id", entry)
		}
		role := domain.RoleUser
		if e, r, hasRole := strings.Cut(email, ":"); hasRole {
			email, role = e, r
		}
		switch role {
		case domain.RoleUser, domain.RoleRecruiter, domain.RoleAdmin:
		default:
			return nil, fmt.Errorf("seed entry %q: unknown role %q", entry, role)
		}
		username, _, _ := strings.Cut(email, "@")
		out = append(out, domain.User{
			UserID:    id,
			Email:     email,
			Username:  username,
			Role:      role,
			Enable:    true,
			CreatedAt: now.UTC(),
		})
	}
	return out, nil
}
