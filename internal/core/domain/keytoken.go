package domain

import "strings"

// KeyToken is the session artifact minted when a key is activated. The
// client presents Token on Connect calls; the record anchors the token to
// the key, product and creator so that a connect can be revoked by deleting
// any of the three.
type KeyToken struct {
	// ID is the unique identifier. Format: kfkt-{ulid_lowercase}.
	ID string `json:"id"`

	// Token is the signed JWT presented by clients.
	Token string `json:"token"`

	// KeyID is the key that was activated.
	KeyID string `json:"key_id"`

	// ProductID is the product the key belongs to.
	ProductID string `json:"product_id"`

	// CreatorID is the user who created the key.
	CreatorID string `json:"creator_id"`

	// CreatedAt is the mint timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewKeyToken creates a KeyToken record anchoring token to its key.
func NewKeyToken(token, keyID, productID, creatorID string) (*KeyToken, error) {
	id, err := NewKeyTokenID()
	if err != nil {
		return nil, err
	}

	return &KeyToken{
		ID:        id,
		Token:     token,
		KeyID:     keyID,
		ProductID: productID,
		CreatorID: creatorID,
		CreatedAt: currentTimeMillis(),
		Version:   1,
	}, nil
}

// Validate validates the key token fields.
func (t *KeyToken) Validate() error {
	var violations []string

	if t.ID == "" {
		violations = append(violations, "id is required")
	} else if !IsValidID(t.ID, KeyTokenIDPrefix) {
		violations = append(violations, "id format invalid")
	}

	if t.Token == "" {
		violations = append(violations, "token is required")
	}
	if !IsValidID(t.KeyID, KeyIDPrefix) {
		violations = append(violations, "key id format invalid")
	}
	if !IsValidID(t.ProductID, ProductIDPrefix) {
		violations = append(violations, "product id format invalid")
	}
	if !IsValidID(t.CreatorID, UserIDPrefix) {
		violations = append(violations, "creator id format invalid")
	}

	if len(violations) > 0 {
		return ErrInvalidArgument.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// IncrVersion increments the version number for optimistic locking.
func (t *KeyToken) IncrVersion() {
	t.Version++
}

// Clone creates a copy of the key token.
func (t *KeyToken) Clone() *KeyToken {
	clone := *t
	return &clone
}
