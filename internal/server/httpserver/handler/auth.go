// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keyforge/keyforge-go/internal/core/service"
)

// handleRegister handles POST /auth/register.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	resp, err := h.users.Register(r.Context(), &service.RegisterRequest{
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, RegisterResponse{
		User:  userToResponse(resp.User),
		Token: resp.Token,
	})
}

// handleLogin handles POST /auth/login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "KF-SYS-4000", "invalid request body", nil)
		return
	}

	resp, err := h.users.Authenticate(r.Context(), &service.AuthenticateRequest{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, LoginResponse{
		User:  userToResponse(resp.User),
		Token: resp.Token,
	})
}
