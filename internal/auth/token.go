package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// codeSpace is the size of the numeric code range 100000-999999.
var codeSpace = big.NewInt(900000)

// NewBearerToken returns a new opaque bearer token: 32 bytes from a
// cryptographically secure source, hex encoded (64 characters, 256 bits).
func NewBearerToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewNumericCode returns a 6-digit code in [100000, 999999], uniformly
// distributed, from a cryptographically secure source.
func NewNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// HashToken returns the hex-encoded SHA-256 hash of a plaintext token.
// Tokens are stored hashed so a leaked database does not leak sessions.
func HashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// codesEqual compares two short codes in constant time.
func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
