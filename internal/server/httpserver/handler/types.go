// Package handler provides HTTP request handlers for Keyforge.
package handler

import (
	"time"

	"github.com/keyforge/keyforge-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// RegisterResponse is the response body for POST /auth/register.
type RegisterResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Login    string `json:"login"` // username or email
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /auth/login.
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UpdateProfileRequest is the request body for POST /users/me.
// Empty fields are left unchanged.
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Authority      string    `json:"authority"`
	Credits        int64     `json:"credits"`
	OwnedProducts  []string  `json:"owned_products"`
	MemberOf       []string  `json:"member_of"`
	PendingInvites []string  `json:"pending_invites"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchUsersResponse is the response body for GET /users/search.
type SearchUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// BalanceResponse is the response body for GET /credits.
type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Credits int64  `json:"credits"`
}

// BuyCreditsRequest is the request body for POST /credits/buy.
type BuyCreditsRequest struct {
	Amount int64 `json:"amount"`
}

// GrantCreditsRequest is the request body for POST /credits/grant.
type GrantCreditsRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// TransferCreditsRequest is the request body for POST /credits/transfer.
// FromID defaults to the caller; moving someone else's credits is an
// admin operation gated on the root capability secret.
type TransferCreditsRequest struct {
	FromID string `json:"from_id,omitempty"`
	ToID   string `json:"to_id"`
	Amount int64  `json:"amount"`
}

// BalanceChangeResponse reports a single balance movement.
type BalanceChangeResponse struct {
	UserID     string `json:"user_id"`
	OldBalance int64  `json:"old_balance"`
	NewBalance int64  `json:"new_balance"`
}

// TransferCreditsResponse is the response body for POST /credits/transfer.
type TransferCreditsResponse struct {
	From BalanceChangeResponse `json:"from"`
	To   BalanceChangeResponse `json:"to"`
}

// CreateProductRequest is the request body for POST /products.
type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RenameProductRequest is the request body for POST /products/{id}/rename.
// OldName must match the current name; it guards against renaming a
// product the caller is looking at stale data for.
type RenameProductRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// DescribeProductRequest is the request body for POST /products/{id}/describe.
type DescribeProductRequest struct {
	Description string `json:"description"`
}

// InviteMemberRequest is the request body for POST /products/{id}/members.
type InviteMemberRequest struct {
	UserID string `json:"user_id"`
}

// TransferOwnershipRequest is the request body for POST /products/{id}/transfer.
// FromID is required in admin mode and must name the current owner.
type TransferOwnershipRequest struct {
	FromID   string `json:"from_id,omitempty"`
	TargetID string `json:"target_id"`
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Members     []string  `json:"members"`
	Keys        []string  `json:"keys"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClearKeysResponse is the response body for DELETE /products/{id}/keys.
type ClearKeysResponse struct {
	Cleared int `json:"cleared"`
}

// CreateKeyRequest is the request body for POST /products/{id}/keys.
type CreateKeyRequest struct {
	Days      int    `json:"days,omitempty"`
	ForUserID string `json:"for_user_id,omitempty"`
}

// CreateKeyResponse is the response body for POST /products/{id}/keys.
// Key is the redeemable scratch-card form; it is returned here and from
// the reveal endpoint, nowhere else.
type CreateKeyResponse struct {
	Key     KeyResponse `json:"key"`
	KeyForm string      `json:"key_form"`
}

// ActivateKeyRequest is the request body for POST /keys/activate.
type ActivateKeyRequest struct {
	Key  string `json:"key"`
	HWID string `json:"hwid"`
}

// ActivateKeyResponse is the response body for POST /keys/activate.
type ActivateKeyResponse struct {
	Key             KeyResponse `json:"key"`
	ConnectionToken string      `json:"connection_token"`
}

// ConnectRequest is the request body for POST /connect.
type ConnectRequest struct {
	ConnectionToken string `json:"connection_token"`
}

// ConnectResponse is the response body for POST /connect.
type ConnectResponse struct {
	KeyID     string `json:"key_id"`
	ProductID string `json:"product_id"`
	CreatorID string `json:"creator_id"`
}

// RevealKeyResponse is the response body for GET /keys/{id}/reveal.
type RevealKeyResponse struct {
	KeyID   string `json:"key_id"`
	KeyForm string `json:"key_form"`
}

// KeyResponse represents a key in API responses. The redeemable form is
// never included; it travels only through issuance and reveal responses.
type KeyResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	CreatorID     string    `json:"creator_id"`
	BeneficiaryID string    `json:"beneficiary_id"`
	Used          bool      `json:"used"`
	Expired       bool      `json:"expired"`
	HWIDLocked    bool      `json:"hwid_locked"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ListKeysResponse is the response body for GET /keys.
type ListKeysResponse struct {
	Keys []KeyResponse `json:"keys"`
}

// userToResponse converts a domain.User to a UserResponse.
func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Authority:      u.Authority.String(),
		Credits:        u.Credits,
		OwnedProducts:  u.OwnedProducts,
		MemberOf:       u.MemberOf,
		PendingInvites: u.PendingInvites,
		CreatedAt:      time.UnixMilli(u.CreatedAt),
	}
}

// productToResponse converts a domain.Product to a ProductResponse.
func productToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Members:     p.Members,
		Keys:        p.Keys,
		CreatedAt:   time.UnixMilli(p.CreatedAt),
	}
}

// keyToResponse converts a domain.Key to a KeyResponse.
func keyToResponse(k *domain.Key) KeyResponse {
	return KeyResponse{
		ID:            k.ID,
		ProductID:     k.ProductID,
		CreatorID:     k.CreatorID,
		BeneficiaryID: k.BeneficiaryID,
		Used:          k.Used,
		Expired:       k.Expired,
		HWIDLocked:    k.HWID.Locked,
		CreatedAt:     time.UnixMilli(k.CreatedAt),
		ExpiresAt:     time.UnixMilli(k.ExpiresAt),
	}
}
