package service

import (
	"context"
	"fmt"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/telemetry/metric"
)

// LedgerService owns every credit balance mutation. Debits fail closed:
// the balance check and the write happen against the same record version,
// so a concurrent spend surfaces as a version conflict instead of a
// negative balance.
type LedgerService struct {
	repo UserRepository
	root *RootGate
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(repo UserRepository, root *RootGate) *LedgerService {
	return &LedgerService{repo: repo, root: root}
}

// BalanceChange reports a completed ledger mutation.
type BalanceChange struct {
	UserID     string
	OldBalance int64
	NewBalance int64
}

// Debit removes amount from the user's balance. Fails with insufficient
// credit before any write when the balance does not cover the amount.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64) (*BalanceChange, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("amount must be positive")
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}

	if !user.CanAfford(amount) {
		return nil, domain.ErrInsufficientCredit.WithDetails(
			fmt.Sprintf("balance %d, need %d", user.Credits, amount))
	}

	oldVersion := user.Version
	user = user.Clone()
	old := user.Credits
	user.Credits -= amount
	user.IncrVersion()

	if err := s.repo.Update(ctx, user, oldVersion); err != nil {
		return nil, err
	}

	metric.CreditsDebited.Add(float64(amount))
	return &BalanceChange{UserID: userID, OldBalance: old, NewBalance: user.Credits}, nil
}

// Credit adds amount to the user's balance. No upper bound.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64) (*BalanceChange, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("amount must be positive")
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}

	oldVersion := user.Version
	user = user.Clone()
	old := user.Credits
	user.Credits += amount
	user.IncrVersion()

	if err := s.repo.Update(ctx, user, oldVersion); err != nil {
		return nil, err
	}

	return &BalanceChange{UserID: userID, OldBalance: old, NewBalance: user.Credits}, nil
}

// Refund returns amount to the user after a key teardown. Failures, a
// vanished user included, propagate to the caller; teardown paths log the
// error and keep going rather than abort.
func (s *LedgerService) Refund(ctx context.Context, userID string, amount int64) (*BalanceChange, error) {
	change, err := s.Credit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	metric.CreditsRefunded.Add(float64(amount))
	return change, nil
}

// ============================================================================
// Credit API operations
// ============================================================================

// BuyRequest contains parameters for a credit purchase. UserID empty means
// the actor buys for themselves.
type BuyRequest struct {
	ActorID string
	UserID  string
	Amount  int64
}

// Buy credits a balance. Payment handling itself lives outside this
// service; this is the ledger entry only.
func (s *LedgerService) Buy(ctx context.Context, req *BuyRequest) (*BalanceChange, error) {
	target := req.UserID
	if target == "" {
		target = req.ActorID
	}
	if target != req.ActorID {
		return nil, domain.ErrForbidden.WithDetails("cannot buy credits for another account")
	}
	return s.Credit(ctx, target, req.Amount)
}

// GrantRequest contains parameters for an administrative credit grant.
type GrantRequest struct {
	ActorID    string
	UserID     string
	Amount     int64
	RootSecret string
}

// Grant credits a balance out of thin air. Admin plus root secret.
func (s *LedgerService) Grant(ctx context.Context, req *GrantRequest) (*BalanceChange, error) {
	actor, err := s.repo.Get(ctx, req.ActorID)
	if err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}
	if !actor.Authority.IsAdmin() {
		return nil, domain.ErrForbidden.WithDetails("admin authority required")
	}
	if err := s.root.verify(req.ActorID, "credits.grant", req.RootSecret); err != nil {
		return nil, err
	}

	target := req.UserID
	if target == "" {
		target = req.ActorID
	}
	return s.Credit(ctx, target, req.Amount)
}

// TransferRequest contains parameters for moving credits between accounts.
// FromID empty means the actor is the source. Acting for a third party
// (FromID != ActorID) requires the root secret.
type TransferRequest struct {
	ActorID    string
	FromID     string
	ToID       string
	Amount     int64
	RootSecret string
}

// TransferResponse reports both sides of a completed transfer.
type TransferResponse struct {
	From *BalanceChange
	To   *BalanceChange
}

// Transfer moves credits from one account to another. Debit then credit,
// sequential writes; a credit failure after the debit surfaces as an
// integrity error.
func (s *LedgerService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	from := req.FromID
	if from == "" {
		from = req.ActorID
	}

	if req.ToID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("destination user id is required")
	}
	if from == req.ToID {
		return nil, domain.ErrSelfTransfer
	}

	if from != req.ActorID {
		if err := s.root.verify(req.ActorID, "credits.transfer", req.RootSecret); err != nil {
			return nil, err
		}
	}

	// Destination must exist before we touch the source balance.
	if _, err := s.repo.Get(ctx, req.ToID); err != nil {
		return nil, domain.ErrUserNotFound.WithCause(err)
	}

	debit, err := s.Debit(ctx, from, req.Amount)
	if err != nil {
		return nil, err
	}

	credit, err := s.Credit(ctx, req.ToID, req.Amount)
	if err != nil {
		return nil, domain.ErrIntegrity.WithDetails(
			fmt.Sprintf("debited %d from %s but credit to %s failed", req.Amount, from, req.ToID)).WithCause(err)
	}

	return &TransferResponse{From: debit, To: credit}, nil
}
