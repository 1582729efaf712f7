package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GeneratedPasswordLen is the length of passwords produced by GeneratePassword
// (hex encoded 12 bytes).
const GeneratedPasswordLen = 24

// GeneratedCredential contains a freshly generated password and its hash.
type GeneratedCredential struct {
	Plaintext string // Show once only
	Hash      string // Argon2id hash for storage
}

// GeneratePlaintextPassword returns a random password without hashing it,
// for callers that hash through their own path.
func GeneratePlaintextPassword() (string, error) {
	secretBytes := make([]byte, GeneratedPasswordLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(secretBytes), nil
}

// GeneratePassword creates a random password and hashes it with h.
// Used by the admin bootstrap command to reset an existing account.
func GeneratePassword(h *Hasher) (*GeneratedCredential, error) {
	plaintext, err := GeneratePlaintextPassword()
	if err != nil {
		return nil, err
	}

	hash, err := h.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &GeneratedCredential{
		Plaintext: plaintext,
		Hash:      hash,
	}, nil
}
