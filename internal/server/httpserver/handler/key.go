// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keyforge/keyforge-go/internal/core/service"
)

// handleActivateKey handles POST /keys/activate. Unauthenticated; the
// scratch-card key string is the credential.
func (h *Handler) handleActivateKey(w http.ResponseWriter, r *http.Request) {
	var req ActivateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	resp, err := h.keys.Activate(r.Context(), &service.ActivateRequest{
		RedeemableForm: req.Key,
		HWIDInfo:       req.HWID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ActivateKeyResponse{
		Key:             keyToResponse(resp.Key),
		ConnectionToken: resp.ConnectionToken,
	})
}

// handleConnect handles POST /connect. Unauthenticated; the connection
// token is the credential.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	record, err := h.keys.Connect(r.Context(), req.ConnectionToken)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ConnectResponse{
		KeyID:     record.KeyID,
		ProductID: record.ProductID,
		CreatorID: record.CreatorID,
	})
}

// handleListKeys handles GET /keys. Lists the keys the caller created.
func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	keys, err := h.keys.ListByCreator(r.Context(), actor.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]KeyResponse, len(keys))
	for i, k := range keys {
		items[i] = keyToResponse(k)
	}
	h.writeJSON(w, r, http.StatusOK, ListKeysResponse{Keys: items})
}

// handleGetKey handles GET /keys/{id}.
func (h *Handler) handleGetKey(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	key, err := h.keys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// Creators see their own keys; everyone else needs admin authority.
	if key.CreatorID != actor.ID && key.BeneficiaryID != actor.ID && !actor.Authority.IsAdmin() {
		h.writeError(w, r, http.StatusForbidden, "KF-AUTH-4030", "forbidden", nil)
		return
	}

	h.writeJSON(w, r, http.StatusOK, keyToResponse(key))
}

// handleRevealKey handles GET /keys/{id}/reveal.
func (h *Handler) handleRevealKey(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	keyID := r.PathValue("id")
	form, err := h.keys.Reveal(r.Context(), actor.ID, keyID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RevealKeyResponse{
		KeyID:   keyID,
		KeyForm: form,
	})
}

// handleDeleteKey handles DELETE /keys/{id}.
func (h *Handler) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.keys.Delete(r.Context(), actor.ID, r.PathValue("id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}
