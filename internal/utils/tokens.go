package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken returns a URL-safe random token built from length
// bytes of system entropy.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
