package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/pkg/token"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "token"
)

type authenticator interface {
	Authenticate(ctx context.Context, tok string) (domain.Identity, error)
}

// Auth returns middleware that validates the Bearer credential, including the
// revocation list, and injects the resolved identity into the context.
func Auth(auth authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := token.FromHeader(r.Header.Get("Authorization"))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			identity, err := auth.Authenticate(r.Context(), tok)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeJSONError(w, http.StatusUnauthorized, "invalid, expired or revoked token")
					return
				}
				writeJSONError(w, http.StatusServiceUnavailable, "credential check unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity, tok)))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok && !id.Anonymous()
}

// TokenFromContext returns the raw bearer credential the request presented.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}

// WithIdentity stores identity and tok the way Auth does.
func WithIdentity(ctx context.Context, identity domain.Identity, tok string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, tokenKey, tok)
}
