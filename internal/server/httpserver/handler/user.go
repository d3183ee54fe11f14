// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/keyforge/keyforge-go/internal/core/service"
)

// handleGetSelf handles GET /users/me.
func (h *Handler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// Re-read so the response reflects writes from other requests
	user, err := h.users.Get(r.Context(), actor.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, userToResponse(user))
}

// handleUpdateProfile handles POST /users/me.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), &service.UpdateProfileRequest{
		UserID:   actor.ID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, userToResponse(user))
}

// handleDeleteSelf handles DELETE /users/me.
func (h *Handler) handleDeleteSelf(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	err = h.users.Delete(r.Context(), &service.DeleteAccountRequest{
		ActorID: actor.ID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleSearchUsers handles GET /users/search.
func (h *Handler) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	users, err := h.users.Search(r.Context(), &service.SearchRequest{
		ActorID: actor.ID,
		Query:   query.Get("q"),
		Limit:   limit,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = userToResponse(u)
	}
	h.writeJSON(w, r, http.StatusOK, SearchUsersResponse{Users: items})
}

// handleGetUser handles GET /users/{id}. Callers can read their own
// record; reading someone else's requires admin authority.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	targetID := r.PathValue("id")
	if targetID != actor.ID && !actor.Authority.IsAdmin() {
		h.writeError(w, r, http.StatusForbidden, "KF-AUTH-4030", "admin authority required", nil)
		return
	}

	user, err := h.users.Get(r.Context(), targetID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, userToResponse(user))
}

// handleDeleteUser handles DELETE /users/{id}. Admin operation; deleting
// an admin account additionally needs the root capability secret.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	err = h.users.Delete(r.Context(), &service.DeleteAccountRequest{
		ActorID:    actor.ID,
		TargetID:   r.PathValue("id"),
		RootSecret: rootSecret(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleElevate handles POST /users/{id}/elevate.
func (h *Handler) handleElevate(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	user, err := h.users.Elevate(r.Context(), actor.ID, r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, userToResponse(user))
}

// handleDemote handles POST /users/{id}/demote.
func (h *Handler) handleDemote(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	user, err := h.users.Demote(r.Context(), actor.ID, r.PathValue("id"), rootSecret(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, userToResponse(user))
}
