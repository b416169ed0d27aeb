package token

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const bearerPrefix = "Bearer "

// FromHeader extracts the credential from an "Authorization: Bearer <token>"
// value. ok is false when the value is empty or not a bearer credential.
func FromHeader(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(value[len(bearerPrefix):])
	return tok, tok != ""
}

// WellFormed reports whether tok has the three dot-separated segments of a JWS compact token.
func WellFormed(tok string) bool {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// Fingerprint returns the hex SHA-256 of tok. Revocation lists store
// fingerprints so raw credentials never sit in the store.
func Fingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
