package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateAccessToken generates a cryptographically secure random bearer token (32 bytes)
func GenerateAccessToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
