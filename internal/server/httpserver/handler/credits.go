// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keyforge/keyforge-go/internal/core/service"
)

// handleBalance handles GET /credits.
func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), actor.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, BalanceResponse{
		UserID:  user.ID,
		Credits: user.Credits,
	})
}

// handleBuyCredits handles POST /credits/buy.
func (h *Handler) handleBuyCredits(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req BuyCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	change, err := h.ledger.Buy(r.Context(), &service.BuyRequest{
		ActorID: actor.ID,
		UserID:  actor.ID,
		Amount:  req.Amount,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, BalanceChangeResponse{
		UserID:     change.UserID,
		OldBalance: change.OldBalance,
		NewBalance: change.NewBalance,
	})
}

// handleGrantCredits handles POST /credits/grant. Admin operation gated
// on the root capability secret.
func (h *Handler) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	change, err := h.ledger.Grant(r.Context(), &service.GrantRequest{
		ActorID:    actor.ID,
		UserID:     req.UserID,
		Amount:     req.Amount,
		RootSecret: rootSecret(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, BalanceChangeResponse{
		UserID:     change.UserID,
		OldBalance: change.OldBalance,
		NewBalance: change.NewBalance,
	})
}

// handleTransferCredits handles POST /credits/transfer.
func (h *Handler) handleTransferCredits(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req TransferCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	fromID := req.FromID
	if fromID == "" {
		fromID = actor.ID
	}

	resp, err := h.ledger.Transfer(r.Context(), &service.TransferRequest{
		ActorID:    actor.ID,
		FromID:     fromID,
		ToID:       req.ToID,
		Amount:     req.Amount,
		RootSecret: rootSecret(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, TransferCreditsResponse{
		From: BalanceChangeResponse{UserID: resp.From.UserID, OldBalance: resp.From.OldBalance, NewBalance: resp.From.NewBalance},
		To:   BalanceChangeResponse{UserID: resp.To.UserID, OldBalance: resp.To.OldBalance, NewBalance: resp.To.NewBalance},
	})
}
