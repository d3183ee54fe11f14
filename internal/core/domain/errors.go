// Package domain defines the core domain models for Keyforge.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes are stable strings of the form KF-<AREA>-<NNNN>; the numeric suffix
// groups errors into the taxonomy (validation, not-found, authorization,
// conflict, insufficient credit, integrity).
type DomainError struct {
	Code    string // Error code (e.g., "KF-KEY-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Argument / validation errors (ARG)
// ============================================================================

var (
	// ErrMissingArgument indicates a required argument was not provided.
	ErrMissingArgument = NewDomainError("KF-ARG-4001", "missing required argument")

	// ErrInvalidArgument indicates an argument has an invalid value.
	ErrInvalidArgument = NewDomainError("KF-ARG-4000", "invalid argument")
)

// ============================================================================
// User errors (USER)
// ============================================================================

var (
	// ErrUserNotFound indicates the requested user was not found.
	ErrUserNotFound = NewDomainError("KF-USER-4040", "user not found")

	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = NewDomainError("KF-USER-4090", "username already exists")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = NewDomainError("KF-USER-4091", "email already exists")

	// ErrAlreadyAdmin indicates the user already has admin authority.
	ErrAlreadyAdmin = NewDomainError("KF-USER-4092", "user already has admin authority")

	// ErrNotAdmin indicates the user has no admin authority to remove.
	ErrNotAdmin = NewDomainError("KF-USER-4093", "user has no admin authority")

	// ErrUserValidation indicates user data validation failed.
	ErrUserValidation = NewDomainError("KF-USER-4000", "user validation failed")
)

// ============================================================================
// Authentication / authorization errors (AUTH)
// ============================================================================

var (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = NewDomainError("KF-AUTH-4010", "invalid credentials")

	// ErrUnauthenticated indicates a missing or invalid auth token.
	ErrUnauthenticated = NewDomainError("KF-AUTH-4011", "authentication required")

	// ErrForbidden indicates the caller lacks the required privilege or
	// ownership for the operation.
	ErrForbidden = NewDomainError("KF-AUTH-4030", "insufficient privilege")

	// ErrRootSecretRequired indicates the root capability secret is missing
	// or does not match.
	ErrRootSecretRequired = NewDomainError("KF-AUTH-4031", "root secret required")
)

// ============================================================================
// Product errors (PROD)
// ============================================================================

var (
	// ErrProductNotFound indicates the requested product was not found.
	ErrProductNotFound = NewDomainError("KF-PROD-4040", "product not found")

	// ErrProductNameTaken indicates the owner already has a product with
	// that name.
	ErrProductNameTaken = NewDomainError("KF-PROD-4090", "product name already used by owner")

	// ErrAlreadyMember indicates the user is already part of the product.
	ErrAlreadyMember = NewDomainError("KF-PROD-4091", "user already a product member")

	// ErrNotMember indicates the user is not part of the product.
	ErrNotMember = NewDomainError("KF-PROD-4092", "user not a product member")

	// ErrProductValidation indicates product data validation failed.
	ErrProductValidation = NewDomainError("KF-PROD-4000", "product validation failed")
)

// ============================================================================
// Key errors (KEY)
// ============================================================================

var (
	// ErrKeyNotFound indicates the key does not exist or was deleted.
	ErrKeyNotFound = NewDomainError("KF-KEY-4040", "key not found")

	// ErrKeyMalformed indicates a public key string failed to decode.
	ErrKeyMalformed = NewDomainError("KF-KEY-4000", "malformed key string")

	// ErrKeyAlreadyUsed indicates a second activation attempt on a used key.
	ErrKeyAlreadyUsed = NewDomainError("KF-KEY-4090", "key already activated")

	// ErrKeyExpired indicates the key's expiration date has passed.
	ErrKeyExpired = NewDomainError("KF-KEY-4012", "key expired")

	// ErrKeyValidation indicates key data validation failed.
	ErrKeyValidation = NewDomainError("KF-KEY-4001", "key validation failed")
)

// ============================================================================
// Connection token errors (TOKN)
// ============================================================================

var (
	// ErrConnectionUnauthorized indicates a connection token failed any of
	// the connect-time cross-checks (signature, token record, product,
	// creator, key identity).
	ErrConnectionUnauthorized = NewDomainError("KF-TOKN-4010", "connection unauthorized")

	// ErrKeyTokenNotFound indicates the key token record is absent.
	ErrKeyTokenNotFound = NewDomainError("KF-TOKN-4040", "key token not found")
)

// ============================================================================
// Credit ledger errors (CRED)
// ============================================================================

var (
	// ErrInsufficientCredit indicates a debit would drive the balance
	// below zero. The debit is rejected before any write.
	ErrInsufficientCredit = NewDomainError("KF-CRED-4020", "insufficient credit")

	// ErrSelfTransfer indicates a credit transfer where source and
	// destination are the same identity.
	ErrSelfTransfer = NewDomainError("KF-CRED-4000", "cannot transfer credits to self")
)

// ============================================================================
// Storage / system errors (STOR, SYS)
// ============================================================================

var (
	// ErrVersionConflict indicates an optimistic lock conflict.
	ErrVersionConflict = NewDomainError("KF-STOR-4091", "version conflict, please retry")

	// ErrStorageError indicates a storage layer failure.
	ErrStorageError = NewDomainError("KF-STOR-5000", "storage error")

	// ErrIntegrity indicates a downstream write in a multi-step cascade
	// failed after an earlier step succeeded. The Details name the failed
	// step so the state can be reconciled manually.
	ErrIntegrity = NewDomainError("KF-SYS-5090", "partial failure, manual reconciliation required")

	// ErrInternalServer indicates an unexpected internal failure.
	ErrInternalServer = NewDomainError("KF-SYS-5000", "internal server error")
)
