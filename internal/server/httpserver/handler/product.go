// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keyforge/keyforge-go/internal/core/service"
)

// handleCreateProduct handles POST /products.
func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	product, err := h.products.Create(r.Context(), &service.CreateProductRequest{
		OwnerID:     actor.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, productToResponse(product))
}

// handleGetProduct handles GET /products/{id}.
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if _, err := requireActor(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	product, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, productToResponse(product))
}

// handleDeleteProduct handles DELETE /products/{id}.
func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.products.Delete(r.Context(), actor.ID, r.PathValue("id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleRenameProduct handles POST /products/{id}/rename.
func (h *Handler) handleRenameProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req RenameProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	product, err := h.products.Rename(r.Context(), &service.RenameRequest{
		ActorID:   actor.ID,
		ProductID: r.PathValue("id"),
		OldName:   req.OldName,
		NewName:   req.NewName,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, productToResponse(product))
}

// handleDescribeProduct handles POST /products/{id}/describe.
func (h *Handler) handleDescribeProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req DescribeProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	product, err := h.products.Redescribe(r.Context(), &service.RedescribeRequest{
		ActorID:     actor.ID,
		ProductID:   r.PathValue("id"),
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, productToResponse(product))
}

// handleInviteMember handles POST /products/{id}/members.
func (h *Handler) handleInviteMember(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	if err := h.products.Invite(r.Context(), actor.ID, r.PathValue("id"), req.UserID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"invited": true})
}

// handleRemoveMember handles DELETE /products/{id}/members/{user_id}.
func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	err = h.products.Remove(r.Context(), actor.ID, r.PathValue("id"), r.PathValue("user_id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"removed": true})
}

// handleTransferOwnership handles POST /products/{id}/transfer.
func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	product, err := h.products.TransferOwnership(r.Context(), &service.TransferOwnershipRequest{
		ActorID:   actor.ID,
		ProductID: r.PathValue("id"),
		FromID:    req.FromID,
		TargetID:  req.TargetID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, productToResponse(product))
}

// handleCreateKey handles POST /products/{id}/keys.
func (h *Handler) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	resp, err := h.keys.Create(r.Context(), &service.CreateKeyRequest{
		ActorID:   actor.ID,
		ProductID: r.PathValue("id"),
		Days:      req.Days,
		ForUserID: req.ForUserID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, CreateKeyResponse{
		Key:     keyToResponse(resp.Key),
		KeyForm: resp.RedeemableForm,
	})
}

// handleClearKeys handles DELETE /products/{id}/keys.
func (h *Handler) handleClearKeys(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	cleared, err := h.products.ClearKeys(r.Context(), actor.ID, r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ClearKeysResponse{Cleared: cleared})
}
