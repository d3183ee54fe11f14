package service

import (
	"context"
	"fmt"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

// Ownership transfer and the teardown cascades. These walk multiple
// records with sequential writes; partial failure surfaces an integrity
// error naming the step that broke.

// TransferOwnershipRequest contains parameters for an ownership transfer.
//
// Self mode: the actor is the current owner and TargetID names the member
// taking over; FromID stays empty. Admin mode: the actor is an admin,
// FromID names the current owner and TargetID the member taking over.
type TransferOwnershipRequest struct {
	ActorID   string
	ProductID string
	FromID    string
	TargetID  string
}

// TransferOwnership swaps the owner and a member. The old owner becomes a
// member, the member becomes the owner, and both users' product reference
// sets move with them.
func (s *ProductService) TransferOwnership(ctx context.Context, req *TransferOwnershipRequest) (*domain.Product, error) {
	product, err := s.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	fromID := req.FromID
	if fromID == "" {
		// Self mode: the actor hands over their own product.
		fromID = req.ActorID
		if product.OwnerID != req.ActorID {
			return nil, domain.ErrForbidden.WithDetails("only the product owner may transfer it")
		}
	} else {
		// Admin mode: transfer between two named users.
		actor, err := s.users.Get(ctx, req.ActorID)
		if err != nil {
			return nil, domain.ErrUserNotFound.WithCause(err)
		}
		if !actor.Authority.IsAdmin() {
			return nil, domain.ErrForbidden.WithDetails("admin authority required")
		}
		if product.OwnerID != fromID {
			return nil, domain.ErrInvalidArgument.WithDetails("named user is not the current owner")
		}
	}

	if req.TargetID == fromID {
		return nil, domain.ErrInvalidArgument.WithDetails("cannot transfer a product to its owner")
	}
	if !product.HasMember(req.TargetID) {
		return nil, domain.ErrNotMember.WithDetails("new owner must already be a product member")
	}

	oldOwner, err := s.users.Get(ctx, fromID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}
	newOwner, err := s.users.Get(ctx, req.TargetID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}

	// Three writes, sequential. The product record is the source of truth
	// for ownership, so it goes first.
	productVersion := product.Version
	product = product.Clone()
	product.OwnerID = req.TargetID
	product.RemoveMember(req.TargetID)
	product.AddMember(fromID)
	product.IncrVersion()
	if err := s.repo.Update(ctx, product, productVersion); err != nil {
		return nil, err
	}

	newOwnerVersion := newOwner.Version
	newOwner = newOwner.Clone()
	newOwner.RemoveMemberOf(req.ProductID)
	newOwner.RemovePendingInvite(req.ProductID)
	newOwner.AddOwnedProduct(req.ProductID)
	newOwner.IncrVersion()
	if err := s.users.Update(ctx, newOwner, newOwnerVersion); err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			"ownership moved on product but new owner record not updated").WithCause(err)
	}

	oldOwnerVersion := oldOwner.Version
	oldOwner = oldOwner.Clone()
	oldOwner.RemoveOwnedProduct(req.ProductID)
	oldOwner.AddMemberOf(req.ProductID)
	oldOwner.IncrVersion()
	if err := s.users.Update(ctx, oldOwner, oldOwnerVersion); err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			"ownership moved on product but previous owner record not updated").WithCause(err)
	}

	return product, nil
}

// ClearKeys deletes every key issued against the product. Owner or admin.
// Unused keys refund their cost to the payer. Per-key failures are logged
// and skipped.
func (s *ProductService) ClearKeys(ctx context.Context, actorID, productID string) (int, error) {
	product, err := s.getOwnedOrAdmin(ctx, actorID, productID)
	if err != nil {
		return 0, err
	}
	return s.clearKeys(ctx, product), nil
}

// clearKeys is the authorization-free cascade over a product's keys.
// Returns how many keys were removed.
func (s *ProductService) clearKeys(ctx context.Context, product *domain.Product) int {
	cleared := 0
	for _, keyID := range product.Keys {
		if err := s.keys.DeleteCascade(ctx, keyID, true); err != nil {
			s.log.Warn("key teardown failed, skipping",
				"product_id", product.ID, "key_id", keyID, "error", err)
			continue
		}
		cleared++
	}
	return cleared
}

// Delete tears the product down: clear keys, detach every member and the
// owner, then drop the product record. Owner or admin. Best-effort per
// item.
func (s *ProductService) Delete(ctx context.Context, actorID, productID string) error {
	product, err := s.getOwnedOrAdmin(ctx, actorID, productID)
	if err != nil {
		return err
	}
	return s.deleteCascade(ctx, product)
}

// DeleteCascade tears down a product without authorization checks. Used
// by account deletion.
func (s *ProductService) DeleteCascade(ctx context.Context, productID string) error {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil // already gone
	}
	return s.deleteCascade(ctx, product)
}

func (s *ProductService) deleteCascade(ctx context.Context, product *domain.Product) error {
	s.clearKeys(ctx, product)

	for _, memberID := range product.Members {
		if err := s.detachUserRefs(ctx, memberID, product.ID); err != nil {
			s.log.Warn("member detach failed, skipping",
				"product_id", product.ID, "user_id", memberID, "error", err)
		}
	}

	if owner, err := s.users.Get(ctx, product.OwnerID); err == nil {
		version := owner.Version
		owner = owner.Clone()
		owner.RemoveOwnedProduct(product.ID)
		owner.IncrVersion()
		if err := s.users.Update(ctx, owner, version); err != nil {
			s.log.Warn("owner detach failed, continuing",
				"product_id", product.ID, "user_id", product.OwnerID, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return domain.ErrIntegrity.WithDetails(
			fmt.Sprintf("cascade finished but product %s not deleted", product.ID)).WithCause(err)
	}
	return nil
}
