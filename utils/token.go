package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a 64-character hex string built from 32
// bytes of crypto/rand output. Tokens are used as single-use capability
// links (invitation accept/decline, signup approve/decline), so each call
// must be independent and unguessable.
func GenerateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
