package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltBytes        = 32
	keyBytes         = 32
)

// HashPassword derives a PBKDF2-SHA256 hash, stored as "salt$hash" hex.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	saltHex := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(saltHex), pbkdf2Iterations, keyBytes, sha256.New)
	return saltHex + "$" + hex.EncodeToString(key), nil
}

// VerifyPassword checks a password against a stored "salt$hash" value.
// A malformed stored value verifies as false, never as an error.
func VerifyPassword(password, stored string) bool {
	saltHex, storedHex, ok := strings.Cut(stored, "$")
	if !ok || saltHex == "" || storedHex == "" {
		return false
	}

	expected, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}

	key := pbkdf2.Key([]byte(password), []byte(saltHex), pbkdf2Iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}
