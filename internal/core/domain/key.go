package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key economics and lifetime.
const (
	// KeyCost is the number of credits debited per key created.
	KeyCost int64 = 10

	// DefaultKeyTTL is how long an unactivated key stays redeemable.
	DefaultKeyTTL = 7 * 24 * time.Hour
)

// HWID records the hardware binding of an activated key.
type HWID struct {
	// Locked reports whether the key is bound to a machine.
	Locked bool `json:"locked"`

	// Fingerprint is the opaque machine identifier captured at activation.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Key is a single-use license key issued against a product.
//
// The canonical identity of the key at the API surface is its UUID; clients
// see it only in its encoded scratch-card form (see pkg/keycodec). Used and
// Expired are one-way flags: once set they never revert.
type Key struct {
	// ID is the unique identifier. Format: kfky-{ulid_lowercase}.
	ID string `json:"id"`

	// UUID is the redeemable identity of the key.
	UUID string `json:"uuid"`

	// ProductID is the product the key was issued against.
	ProductID string `json:"product_id"`

	// CreatorID is the user who created the key.
	CreatorID string `json:"creator_id"`

	// BeneficiaryID is the user whose balance was debited for the key.
	BeneficiaryID string `json:"beneficiary_id"`

	// Used reports whether the key has been activated. Set exactly once.
	Used bool `json:"used"`

	// Expired reports whether the key passed its expiration unactivated.
	Expired bool `json:"expired"`

	// HWID is the hardware binding, set at activation.
	HWID HWID `json:"hwid"`

	// CreatedAt is the issuance timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is the redemption deadline (Unix milliseconds).
	ExpiresAt int64 `json:"expires_at"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewKey creates a new unactivated Key for productID, created by creatorID
// and paid for by beneficiaryID, expiring after ttl.
func NewKey(productID, creatorID, beneficiaryID string, ttl time.Duration) (*Key, error) {
	id, err := NewKeyID()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}

	now := currentTimeMillis()
	return &Key{
		ID:            id,
		UUID:          uuid.NewString(),
		ProductID:     productID,
		CreatorID:     creatorID,
		BeneficiaryID: beneficiaryID,
		CreatedAt:     now,
		ExpiresAt:     now + ttl.Milliseconds(),
		Version:       1,
	}, nil
}

// Validate validates the key fields against constraints.
func (k *Key) Validate() error {
	var violations []string

	if k.ID == "" {
		violations = append(violations, "id is required")
	} else if !IsValidID(k.ID, KeyIDPrefix) {
		violations = append(violations, "id format invalid")
	}

	if _, err := uuid.Parse(k.UUID); err != nil {
		violations = append(violations, "uuid format invalid")
	}

	if !IsValidID(k.ProductID, ProductIDPrefix) {
		violations = append(violations, "product id format invalid")
	}
	if !IsValidID(k.CreatorID, UserIDPrefix) {
		violations = append(violations, "creator id format invalid")
	}
	if !IsValidID(k.BeneficiaryID, UserIDPrefix) {
		violations = append(violations, "beneficiary id format invalid")
	}

	if k.ExpiresAt <= k.CreatedAt {
		violations = append(violations, "expiration must be after creation")
	}

	if k.HWID.Locked && k.HWID.Fingerprint == "" {
		violations = append(violations, "locked hwid requires a fingerprint")
	}

	if len(violations) > 0 {
		return ErrKeyValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// IsExpiredAt reports whether the key's deadline has passed at the given
// time, independent of the Expired flag.
func (k *Key) IsExpiredAt(now time.Time) bool {
	return now.UnixMilli() >= k.ExpiresAt
}

// Redeemable reports whether the key can still be activated at now.
func (k *Key) Redeemable(now time.Time) bool {
	return !k.Used && !k.Expired && !k.IsExpiredAt(now)
}

// Activate binds the key to a machine fingerprint and marks it used.
// Callers must have already checked Redeemable under a store-level
// conditional update; Activate itself does not guard against double use.
func (k *Key) Activate(fingerprint string) {
	k.Used = true
	k.HWID = HWID{Locked: true, Fingerprint: fingerprint}
}

// IncrVersion increments the version number for optimistic locking.
func (k *Key) IncrVersion() {
	k.Version++
}

// Clone creates a copy of the key.
func (k *Key) Clone() *Key {
	clone := *k
	return &clone
}
