// ABOUTME: API key generation and hashing
// ABOUTME: Keys are shown once at registration; only their SHA-256 is stored

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks clawcouncil API keys
const APIKeyPrefix = "cc_"

const apiKeyRandomBytes = 24

// NewAPIKey returns a fresh plaintext key and the hash to persist
func NewAPIKey() (key, hash string, err error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating api key: %w", err)
	}
	key = APIKeyPrefix + hex.EncodeToString(buf)
	return key, HashAPIKey(key), nil
}

// HashAPIKey returns the hex SHA-256 of a plaintext key
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsAPIKey reports whether a credential looks like an API key rather than a JWT
func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, APIKeyPrefix)
}
