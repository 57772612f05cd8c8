package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// HashToken returns the storage form of a secret that must be compared, not recovered.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
