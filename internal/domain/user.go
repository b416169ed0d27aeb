package domain

import "time"

// Role names carried in bearer credentials.
const (
	RoleUser      = "user"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// User is the directory entry the messaging core resolves ids against.
// Account management lives outside this service; only lookups happen here.
type User struct {
	UserID    int64     `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Username  string    `json:"username" dynamodbav:"username"`
	Role      string    `json:"role" dynamodbav:"role"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Identity is the authenticated principal resolved from a bearer credential.
// It is fixed for the lifetime of a connection once the handshake succeeds.
type Identity struct {
	UserID    int64
	Role      string
	SessionID string
	ExpiresAt time.Time
}

// Anonymous reports whether the identity carries no user.
func (i Identity) Anonymous() bool { return i.UserID <= 0 }
