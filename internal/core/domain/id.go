// Package domain defines the core domain models for Keyforge.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity ID prefixes. IDs are the prefix followed by a lowercase ULID,
// 31 characters total.
const (
	UserIDPrefix     = "kfus-"
	ProductIDPrefix  = "kfpd-"
	KeyIDPrefix      = "kfky-"
	KeyTokenIDPrefix = "kfkt-"

	idLength = 5 + 26 // prefix + ULID
)

// newID generates a prefixed lowercase ULID.
func newID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// NewUserID generates a new user ID.
func NewUserID() (string, error) { return newID(UserIDPrefix) }

// NewProductID generates a new product ID.
func NewProductID() (string, error) { return newID(ProductIDPrefix) }

// NewKeyID generates a new key ID.
func NewKeyID() (string, error) { return newID(KeyIDPrefix) }

// NewKeyTokenID generates a new key token ID.
func NewKeyTokenID() (string, error) { return newID(KeyTokenIDPrefix) }

// IsValidID checks whether id is a valid entity ID with the given prefix.
// The ID is normalized to lowercase before validation.
func IsValidID(id, prefix string) bool {
	id = strings.ToLower(id)

	if !strings.HasPrefix(id, prefix) {
		return false
	}
	if len(id) != idLength {
		return false
	}

	ulidPart := strings.ToUpper(id[len(prefix):])
	_, err := ulid.Parse(ulidPart)
	return err == nil
}

// NormalizeID normalizes an entity ID to lowercase.
// Returns empty string if the ID is invalid for the given prefix.
func NormalizeID(id, prefix string) string {
	normalized := strings.ToLower(id)
	if !IsValidID(normalized, prefix) {
		return ""
	}
	return normalized
}

// currentTimeMillis returns the current Unix timestamp in milliseconds.
// Package-level variable to enable testing with mock time.
var currentTimeMillis = func() int64 {
	return timeNow().UnixMilli()
}

// timeNow is a hook for testing.
var timeNow = time.Now
