// Package domain defines the core domain models for Keyforge.
package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// User constraints.
const (
	MinUsernameLength = 6
	MaxUsernameLength = 255
	MinEmailLength    = 6
	MaxEmailLength    = 500
	MinPasswordLength = 8
	MaxPasswordLength = 1024
)

// Argon2id parameters for password hashing.
const (
	Argon2Memory      uint32 = 16384 // KB (16 MB)
	Argon2Time        uint32 = 2
	Argon2Parallelism uint8  = 2
	Argon2KeyLen      uint32 = 32
	Argon2SaltLen            = 16
)

// Role is the privilege level of a user. It is a flat two-tier capability
// flag, not a scale; the numeric values exist only for wire compatibility
// with clients that expect the original authority levels.
type Role int

const (
	// RoleUser is a normal account with no elevated privilege.
	RoleUser Role = 0

	// RoleAdmin is an administrator account.
	RoleAdmin Role = 10
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// IsAdmin reports whether r carries admin authority.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// User represents a registered account.
//
// OwnedProducts, MemberOf and PendingInvites are denormalized back-references
// to Product records. They are maintained by sequential best-effort writes
// (no cross-document transactions), so services must treat them as
// eventually consistent under partial failure.
type User struct {
	// ID is the unique identifier. Format: kfus-{ulid_lowercase}.
	ID string `json:"id"`

	// Username is globally unique, 6..255 characters, no '@'.
	Username string `json:"username"`

	// Email is globally unique and stored lowercase.
	Email string `json:"email"`

	// PasswordHash is the Argon2id hash of the password (never serialized).
	PasswordHash string `json:"-"`

	// Authority is the privilege level.
	Authority Role `json:"authority"`

	// Credits is the ledger balance. Debits must never drive it below zero.
	Credits int64 `json:"credits"`

	// OwnedProducts lists product IDs this user owns.
	OwnedProducts []string `json:"owned_products"`

	// MemberOf lists product IDs this user participates in as a non-owner.
	MemberOf []string `json:"member_of"`

	// PendingInvites lists product IDs with an outstanding invite
	// notification. Membership is granted at invite time; this list is
	// notification-only and is cleaned up on removal or product deletion.
	PendingInvites []string `json:"pending_invites"`

	// CreatedAt is the registration timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewUser creates a new User with a generated ID and hashed password.
func NewUser(username, email, password string) (*User, error) {
	id, err := NewUserID()
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}

	return &User{
		ID:             id,
		Username:       username,
		Email:          strings.ToLower(email),
		PasswordHash:   hash,
		Authority:      RoleUser,
		OwnedProducts:  []string{},
		MemberOf:       []string{},
		PendingInvites: []string{},
		CreatedAt:      currentTimeMillis(),
		Version:        1,
	}, nil
}

// Validate validates the user fields against constraints.
func (u *User) Validate() error {
	var violations []string

	if u.ID == "" {
		violations = append(violations, "id is required")
	} else if !IsValidID(u.ID, UserIDPrefix) {
		violations = append(violations, "id format invalid")
	}

	if err := ValidateUsername(u.Username); err != nil {
		violations = append(violations, err.Error())
	}
	if err := ValidateEmail(u.Email); err != nil {
		violations = append(violations, err.Error())
	}

	if u.PasswordHash == "" {
		violations = append(violations, "password hash is required")
	}

	if !u.Authority.IsValid() {
		violations = append(violations, "authority must be user or admin")
	}

	if u.Credits < 0 {
		violations = append(violations, "credits must not be negative")
	}

	if len(violations) > 0 {
		return ErrUserValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// ValidateUsername checks the username constraints.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username is required")
	case len(username) < MinUsernameLength:
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	case len(username) > MaxUsernameLength:
		return fmt.Errorf("username exceeds %d characters", MaxUsernameLength)
	case strings.Contains(username, "@"):
		return fmt.Errorf("username must not contain '@'")
	}
	return nil
}

// ValidateEmail checks the email constraints. The check is deliberately
// loose: one '@' with a dotted host part.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return fmt.Errorf("email is required")
	case len(email) < MinEmailLength:
		return fmt.Errorf("email must be at least %d characters", MinEmailLength)
	case len(email) > MaxEmailLength:
		return fmt.Errorf("email exceeds %d characters", MaxEmailLength)
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email format invalid")
	}
	host := email[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fmt.Errorf("email format invalid")
	}
	return nil
}

// ValidatePasswordStrength enforces the registration password policy:
// at least 8 characters with an upper case letter, a lower case letter,
// a digit and a special character.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password exceeds %d characters", MaxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("password must contain an upper case letter, a lower case letter, a digit and a special character")
	}
	return nil
}

// HashPassword computes an Argon2id hash of the password.
// Returns the hash in the format: $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)

	return "$argon2id$v=19$m=16384,t=2,p=2$" + saltB64 + "$" + hashB64, nil
}

// VerifyPassword checks a password against an encoded Argon2id hash using a
// constant-time comparison. The hash is never reversible.
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	// ["", "argon2id", "v=19", "m=16384,t=2,p=2", salt, hash]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// CanAfford reports whether the balance covers a debit of amount.
func (u *User) CanAfford(amount int64) bool {
	return u.Credits >= amount
}

// OwnsProduct reports whether the user owns the given product.
func (u *User) OwnsProduct(productID string) bool {
	return containsID(u.OwnedProducts, productID)
}

// IsMemberOf reports whether the user is a non-owner member of the product.
func (u *User) IsMemberOf(productID string) bool {
	return containsID(u.MemberOf, productID)
}

// AddOwnedProduct appends a product reference to OwnedProducts.
func (u *User) AddOwnedProduct(productID string) {
	u.OwnedProducts = addID(u.OwnedProducts, productID)
}

// RemoveOwnedProduct removes a product reference from OwnedProducts.
func (u *User) RemoveOwnedProduct(productID string) {
	u.OwnedProducts = removeID(u.OwnedProducts, productID)
}

// AddMemberOf appends a product reference to MemberOf.
func (u *User) AddMemberOf(productID string) {
	u.MemberOf = addID(u.MemberOf, productID)
}

// RemoveMemberOf removes a product reference from MemberOf.
func (u *User) RemoveMemberOf(productID string) {
	u.MemberOf = removeID(u.MemberOf, productID)
}

// AddPendingInvite appends a product reference to PendingInvites.
func (u *User) AddPendingInvite(productID string) {
	u.PendingInvites = addID(u.PendingInvites, productID)
}

// RemovePendingInvite removes a product reference from PendingInvites.
func (u *User) RemovePendingInvite(productID string) {
	u.PendingInvites = removeID(u.PendingInvites, productID)
}

// IncrVersion increments the version number for optimistic locking.
func (u *User) IncrVersion() {
	u.Version++
}

// Clone creates a deep copy of the user.
func (u *User) Clone() *User {
	clone := *u
	clone.OwnedProducts = append([]string(nil), u.OwnedProducts...)
	clone.MemberOf = append([]string(nil), u.MemberOf...)
	clone.PendingInvites = append([]string(nil), u.PendingInvites...)
	return &clone
}

// containsID reports whether ids contains id.
func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// addID appends id if not already present.
func addID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

// removeID removes id if present, preserving order.
func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
