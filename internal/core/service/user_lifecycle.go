package service

import (
	"context"
	"fmt"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

// Account deletion. A user takes their owned products (and everything
// under them), their created keys and their membership links down with
// them. The walk is sequential and best-effort per item.

// DeleteAccountRequest contains parameters for account deletion.
//
// TargetID empty means self-deletion. Deleting another account requires
// admin authority; deleting an admin account additionally requires the
// root capability secret.
type DeleteAccountRequest struct {
	ActorID    string
	TargetID   string
	RootSecret string
}

// Delete removes an account and cascades everything it owns.
func (s *UserService) Delete(ctx context.Context, req *DeleteAccountRequest) error {
	targetID := req.TargetID
	if targetID == "" {
		targetID = req.ActorID
	}

	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}

	if targetID != req.ActorID {
		if err := s.requireAdmin(ctx, req.ActorID); err != nil {
			return err
		}
		if target.Authority.IsAdmin() {
			if err := s.root.verify(req.ActorID, "user.delete_admin", req.RootSecret); err != nil {
				return err
			}
		}
	}

	// 1. Owned products go first, each with its full cascade.
	for _, productID := range target.OwnedProducts {
		if err := s.products.DeleteCascade(ctx, productID); err != nil {
			return domain.ErrIntegrity.WithDetails(
				fmt.Sprintf("product %s cascade failed during account deletion", productID)).WithCause(err)
		}
	}

	// 2. Keys the user created against other people's products. No refund,
	// the balance disappears with the account.
	keyIDs, err := s.keys.ListIDsByCreator(ctx, targetID)
	if err != nil {
		return err
	}
	for _, keyID := range keyIDs {
		if err := s.keys.DeleteCascade(ctx, keyID, false); err != nil {
			return domain.ErrIntegrity.WithDetails(
				fmt.Sprintf("key %s cascade failed during account deletion", keyID)).WithCause(err)
		}
	}

	// 3. Memberships on products the user does not own.
	for _, productID := range target.MemberOf {
		if err := s.products.DetachMember(ctx, productID, targetID); err != nil {
			return domain.ErrIntegrity.WithDetails(
				fmt.Sprintf("membership detach from %s failed during account deletion", productID)).WithCause(err)
		}
	}

	// 4. The account itself.
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return domain.ErrIntegrity.WithDetails(
			"cascades finished but account record not deleted").WithCause(err)
	}
	return nil
}
