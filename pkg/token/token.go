package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// DefaultLength is the entropy in bytes of a generated token.
const DefaultLength = 32

// Generate returns a random token with DefaultLength bytes of entropy,
// Base64 RawURL encoded so it travels safely in URLs and headers.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a random token built from length bytes of
// CSPRNG output.
func GenerateWithLength(length int) (string, error) {
	raw, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// GenerateBytes returns length bytes of CSPRNG output.
func GenerateBytes(length int) ([]byte, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Hash returns the hex-encoded SHA-256 digest of a token. Stores take
// the digest so a leaked database never yields usable tokens.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether token hashes to expectedHash, comparing in
// constant time.
func Verify(token, expectedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(token)), []byte(expectedHash)) == 1
}
