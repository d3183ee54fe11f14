package service

import (
	"context"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

// ProductRepository defines the storage interface for product records.
type ProductRepository interface {
	// Create stores a new product.
	Create(ctx context.Context, product *domain.Product) error

	// Get retrieves a product by ID.
	Get(ctx context.Context, id string) (*domain.Product, error)

	// GetByOwnerAndName retrieves a product by owner ID and exact name.
	GetByOwnerAndName(ctx context.Context, ownerID, name string) (*domain.Product, error)

	// Update updates an existing product (with optimistic locking).
	Update(ctx context.Context, product *domain.Product, expectedVersion uint64) error

	// Delete deletes a product by ID.
	Delete(ctx context.Context, id string) error
}

// DefaultProductDescription fills in when a product is created without one.
const DefaultProductDescription = "No description provided."

// ProductService handles product lifecycle, membership and ownership.
type ProductService struct {
	repo  ProductRepository
	users UserRepository
	keys  KeyCascader
	log   logger.Logger
}

// NewProductService creates a new ProductService. The key cascader is
// wired after construction (SetKeyCascader) because KeyService is built
// on top of this service.
func NewProductService(repo ProductRepository, users UserRepository, log logger.Logger) *ProductService {
	return &ProductService{
		repo:  repo,
		users: users,
		log:   log,
	}
}

// SetKeyCascader wires the key teardown dependency.
func (s *ProductService) SetKeyCascader(keys KeyCascader) {
	s.keys = keys
}

// ============================================================================
// Creation and queries
// ============================================================================

// CreateProductRequest contains parameters for product creation.
type CreateProductRequest struct {
	OwnerID     string
	Name        string
	Description string // optional, placeholder when empty
}

// Create creates a new product owned by the caller.
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*domain.Product, error) {
	// 1. Validate
	if err := domain.ValidateProductName(req.Name); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	description := req.Description
	if description == "" {
		description = DefaultProductDescription
	}
	if err := domain.ValidateProductDescription(description); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}

	owner, err := s.users.Get(ctx, req.OwnerID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}

	// 2. Per-owner name uniqueness
	if _, err := s.repo.GetByOwnerAndName(ctx, req.OwnerID, req.Name); err == nil {
		return nil, domain.ErrProductNameTaken
	}

	// 3. Persist the product
	product, err := domain.NewProduct(req.Name, description, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	// 4. Back-reference on the owner; compensate on failure so no
	// unreachable product survives
	ownerVersion := owner.Version
	owner = owner.Clone()
	owner.AddOwnedProduct(product.ID)
	owner.IncrVersion()
	if err := s.users.Update(ctx, owner, ownerVersion); err != nil {
		if delErr := s.repo.Delete(ctx, product.ID); delErr != nil {
			return nil, domain.ErrIntegrity.WithDetails(
				"product created but owner update and compensating delete both failed").WithCause(delErr)
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return product, nil
}

// Get retrieves a product by ID.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("product id is required")
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, domain.ErrProductNotFound.WithCause(err)
	}
	return product, nil
}

// ============================================================================
// Updates
// ============================================================================

// RenameRequest contains parameters for a product rename. OldName must
// match the current name, a cheap confirmation against renaming the wrong
// product.
type RenameRequest struct {
	ActorID   string
	ProductID string
	OldName   string
	NewName   string
}

// Rename changes the product name. Owner only.
func (s *ProductService) Rename(ctx context.Context, req *RenameRequest) (*domain.Product, error) {
	product, err := s.getOwned(ctx, req.ActorID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if req.OldName != product.Name {
		return nil, domain.ErrInvalidArgument.WithDetails("old name does not match")
	}
	if req.NewName == product.Name {
		return nil, domain.ErrInvalidArgument.WithDetails("new name equals current name")
	}
	if err := domain.ValidateProductName(req.NewName); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}

	oldVersion := product.Version
	product = product.Clone()
	product.Name = req.NewName
	product.IncrVersion()

	if err := s.repo.Update(ctx, product, oldVersion); err != nil {
		return nil, err
	}
	return product, nil
}

// RedescribeRequest contains parameters for a description change.
type RedescribeRequest struct {
	ActorID     string
	ProductID   string
	Description string
}

// Redescribe changes the product description. Owner only.
func (s *ProductService) Redescribe(ctx context.Context, req *RedescribeRequest) (*domain.Product, error) {
	product, err := s.getOwned(ctx, req.ActorID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if req.Description == product.Description {
		return nil, domain.ErrInvalidArgument.WithDetails("description unchanged")
	}
	if err := domain.ValidateProductDescription(req.Description); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}

	oldVersion := product.Version
	product = product.Clone()
	product.Description = req.Description
	product.IncrVersion()

	if err := s.repo.Update(ctx, product, oldVersion); err != nil {
		return nil, err
	}
	return product, nil
}

// ============================================================================
// Membership
// ============================================================================

// Invite adds userID to the product's members. Owner only. Membership is
// immediate; the pending-invite entry on the target is a notification, not
// an approval step.
func (s *ProductService) Invite(ctx context.Context, actorID, productID, userID string) error {
	product, err := s.getOwned(ctx, actorID, productID)
	if err != nil {
		return err
	}

	if userID == product.OwnerID {
		return domain.ErrAlreadyMember.WithDetails("user owns this product")
	}
	if product.HasMember(userID) {
		return domain.ErrAlreadyMember
	}

	target, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.ErrUserNotFound.WithCause(err)
	}

	productVersion := product.Version
	product = product.Clone()
	product.AddMember(userID)
	product.IncrVersion()
	if err := s.repo.Update(ctx, product, productVersion); err != nil {
		return err
	}

	targetVersion := target.Version
	target = target.Clone()
	target.AddMemberOf(productID)
	target.AddPendingInvite(productID)
	target.IncrVersion()
	if err := s.users.Update(ctx, target, targetVersion); err != nil {
		return domain.ErrIntegrity.WithDetails(
			"member added to product but user back-reference failed").WithCause(err)
	}

	return nil
}

// Remove removes userID from the product's members. Owner only.
func (s *ProductService) Remove(ctx context.Context, actorID, productID, userID string) error {
	product, err := s.getOwned(ctx, actorID, productID)
	if err != nil {
		return err
	}

	if !product.HasMember(userID) {
		return domain.ErrNotMember
	}

	productVersion := product.Version
	product = product.Clone()
	product.RemoveMember(userID)
	product.IncrVersion()
	if err := s.repo.Update(ctx, product, productVersion); err != nil {
		return err
	}

	if err := s.detachUserRefs(ctx, userID, productID); err != nil {
		return domain.ErrIntegrity.WithDetails(
			"member removed from product but user back-reference failed").WithCause(err)
	}
	return nil
}

// DetachMember removes the membership link in both directions without
// authorization checks. Used by account deletion.
func (s *ProductService) DetachMember(ctx context.Context, productID, userID string) error {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil // product already gone, nothing to detach
	}
	if product.HasMember(userID) {
		version := product.Version
		product = product.Clone()
		product.RemoveMember(userID)
		product.IncrVersion()
		if err := s.repo.Update(ctx, product, version); err != nil {
			return err
		}
	}
	return s.detachUserRefs(ctx, userID, productID)
}

// detachUserRefs removes a product from a user's MemberOf and
// PendingInvites lists. A missing user is fine.
func (s *ProductService) detachUserRefs(ctx context.Context, userID, productID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil
	}
	version := user.Version
	user = user.Clone()
	user.RemoveMemberOf(productID)
	user.RemovePendingInvite(productID)
	user.IncrVersion()
	return s.users.Update(ctx, user, version)
}

// getOwned loads the product and checks the actor owns it.
func (s *ProductService) getOwned(ctx context.Context, actorID, productID string) (*domain.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != actorID {
		return nil, domain.ErrForbidden.WithDetails("only the product owner may do this")
	}
	return product, nil
}

// getOwnedOrAdmin loads the product and checks the actor owns it or is an
// admin.
func (s *ProductService) getOwnedOrAdmin(ctx context.Context, actorID, productID string) (*domain.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID == actorID {
		return product, nil
	}
	actor, err := s.users.Get(ctx, actorID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}
	if !actor.Authority.IsAdmin() {
		return nil, domain.ErrForbidden.WithDetails("owner or admin authority required")
	}
	return product, nil
}
