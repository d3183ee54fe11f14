package domain

import (
	"fmt"
	"strings"
)

// Product constraints.
const (
	MinProductNameLength = 3
	MaxProductNameLength = 255
	MinDescriptionLength = 10
	MaxDescriptionLength = 4096
)

// Product represents a product that license keys are issued against.
//
// Keys and Users carry denormalized key and membership references that are
// kept in step with the product by sequential best-effort writes.
type Product struct {
	// ID is the unique identifier. Format: kfpd-{ulid_lowercase}.
	ID string `json:"id"`

	// Name is the product name, unique per owner, at least 3 characters.
	Name string `json:"name"`

	// Description is the product description, at least 10 characters.
	Description string `json:"description"`

	// OwnerID is the user who owns the product. Every product has exactly
	// one owner at all times.
	OwnerID string `json:"owner_id"`

	// Members lists non-owner participant user IDs.
	Members []string `json:"members"`

	// Keys lists the IDs of license keys issued against this product.
	Keys []string `json:"keys"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewProduct creates a new Product with a generated ID owned by ownerID.
func NewProduct(name, description, ownerID string) (*Product, error) {
	id, err := NewProductID()
	if err != nil {
		return nil, err
	}

	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Members:     []string{},
		Keys:        []string{},
		CreatedAt:   currentTimeMillis(),
		Version:     1,
	}, nil
}

// Validate validates the product fields against constraints.
func (p *Product) Validate() error {
	var violations []string

	if p.ID == "" {
		violations = append(violations, "id is required")
	} else if !IsValidID(p.ID, ProductIDPrefix) {
		violations = append(violations, "id format invalid")
	}

	if err := ValidateProductName(p.Name); err != nil {
		violations = append(violations, err.Error())
	}
	if err := ValidateProductDescription(p.Description); err != nil {
		violations = append(violations, err.Error())
	}

	if p.OwnerID == "" {
		violations = append(violations, "owner id is required")
	} else if !IsValidID(p.OwnerID, UserIDPrefix) {
		violations = append(violations, "owner id format invalid")
	}

	if len(violations) > 0 {
		return ErrProductValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// ValidateProductName checks the product name constraints.
func ValidateProductName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required")
	case len(name) < MinProductNameLength:
		return fmt.Errorf("name must be at least %d characters", MinProductNameLength)
	case len(name) > MaxProductNameLength:
		return fmt.Errorf("name exceeds %d characters", MaxProductNameLength)
	}
	return nil
}

// ValidateProductDescription checks the product description constraints.
func ValidateProductDescription(description string) error {
	switch {
	case description == "":
		return fmt.Errorf("description is required")
	case len(description) < MinDescriptionLength:
		return fmt.Errorf("description must be at least %d characters", MinDescriptionLength)
	case len(description) > MaxDescriptionLength:
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	return nil
}

// HasMember reports whether userID is a non-owner member.
func (p *Product) HasMember(userID string) bool {
	return containsID(p.Members, userID)
}

// HasKey reports whether keyID is issued against this product.
func (p *Product) HasKey(keyID string) bool {
	return containsID(p.Keys, keyID)
}

// AddMember appends a member reference.
func (p *Product) AddMember(userID string) {
	p.Members = addID(p.Members, userID)
}

// RemoveMember removes a member reference.
func (p *Product) RemoveMember(userID string) {
	p.Members = removeID(p.Members, userID)
}

// AddKey appends a key reference.
func (p *Product) AddKey(keyID string) {
	p.Keys = addID(p.Keys, keyID)
}

// RemoveKey removes a key reference.
func (p *Product) RemoveKey(keyID string) {
	p.Keys = removeID(p.Keys, keyID)
}

// IncrVersion increments the version number for optimistic locking.
func (p *Product) IncrVersion() {
	p.Version++
}

// Clone creates a deep copy of the product.
func (p *Product) Clone() *Product {
	clone := *p
	clone.Members = append([]string(nil), p.Members...)
	clone.Keys = append([]string(nil), p.Keys...)
	return &clone
}
