// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/keyforge/keyforge-go/internal/core/domain"
	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
	"github.com/keyforge/keyforge-go/internal/telemetry/metric"
)

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	users    *service.UserService
	products *service.ProductService
	keys     *service.KeyService
	ledger   *service.LedgerService
	logger   logger.Logger
	mux      *http.ServeMux
}

// New creates a new Handler with the given services.
func New(
	users *service.UserService,
	products *service.ProductService,
	keys *service.KeyService,
	ledger *service.LedgerService,
	log logger.Logger,
) *Handler {
	h := &Handler{
		users:    users,
		products: products,
		keys:     keys,
		ledger:   ledger,
		logger:   log,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints (no auth required)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.Handle("GET /metrics", metric.Handler())

	// Account entry points (no auth required)
	h.mux.HandleFunc("POST /auth/register", h.handleRegister)
	h.mux.HandleFunc("POST /auth/login", h.handleLogin)

	// Key redemption surface (no auth required; the key form and the
	// connection token are the credentials)
	h.mux.HandleFunc("POST /keys/activate", h.handleActivateKey)
	h.mux.HandleFunc("POST /connect", h.handleConnect)

	// Account endpoints
	h.mux.HandleFunc("GET /users/me", h.handleGetSelf)
	h.mux.HandleFunc("POST /users/me", h.handleUpdateProfile)
	h.mux.HandleFunc("DELETE /users/me", h.handleDeleteSelf)
	h.mux.HandleFunc("GET /users/search", h.handleSearchUsers)
	h.mux.HandleFunc("GET /users/{id}", h.handleGetUser)
	h.mux.HandleFunc("DELETE /users/{id}", h.handleDeleteUser)
	h.mux.HandleFunc("POST /users/{id}/elevate", h.handleElevate)
	h.mux.HandleFunc("POST /users/{id}/demote", h.handleDemote)

	// Credit ledger endpoints
	h.mux.HandleFunc("GET /credits", h.handleBalance)
	h.mux.HandleFunc("POST /credits/buy", h.handleBuyCredits)
	h.mux.HandleFunc("POST /credits/grant", h.handleGrantCredits)
	h.mux.HandleFunc("POST /credits/transfer", h.handleTransferCredits)

	// Product endpoints
	h.mux.HandleFunc("POST /products", h.handleCreateProduct)
	h.mux.HandleFunc("GET /products/{id}", h.handleGetProduct)
	h.mux.HandleFunc("DELETE /products/{id}", h.handleDeleteProduct)
	h.mux.HandleFunc("POST /products/{id}/rename", h.handleRenameProduct)
	h.mux.HandleFunc("POST /products/{id}/describe", h.handleDescribeProduct)
	h.mux.HandleFunc("POST /products/{id}/members", h.handleInviteMember)
	h.mux.HandleFunc("DELETE /products/{id}/members/{user_id}", h.handleRemoveMember)
	h.mux.HandleFunc("POST /products/{id}/transfer", h.handleTransferOwnership)
	h.mux.HandleFunc("POST /products/{id}/keys", h.handleCreateKey)
	h.mux.HandleFunc("DELETE /products/{id}/keys", h.handleClearKeys)

	// Key endpoints
	h.mux.HandleFunc("GET /keys", h.handleListKeys)
	h.mux.HandleFunc("GET /keys/{id}", h.handleGetKey)
	h.mux.HandleFunc("GET /keys/{id}/reveal", h.handleRevealKey)
	h.mux.HandleFunc("DELETE /keys/{id}", h.handleDeleteKey)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts request ID from the header set by middleware.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		if status >= 500 {
			logger.L(r.Context()).Error("request failed", "code", code, "error", err)
		}
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	// Generic internal error
	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "KF-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"),
		strings.HasSuffix(code, "-4092"), strings.HasSuffix(code, "-4093"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"),
		strings.HasSuffix(code, "-4012"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"), strings.HasSuffix(code, "-4031"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4020"):
		return http.StatusPaymentRequired
	case strings.HasPrefix(code, "KF-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// rootSecret pulls the out-of-band capability secret from the request.
func rootSecret(r *http.Request) string {
	return r.Header.Get("X-Root-Secret")
}
