package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SaltLength is the number of random bytes in a session salt.
const SaltLength = 16

// GenerateSessionSalt returns a random hex salt. Rotating an EPerson's salt
// invalidates every login token signed with the previous one.
func GenerateSessionSalt() (string, error) {
	b := make([]byte, SaltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}
