package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("KF-TEST-1000", "test message"),
			expected: "[KF-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("KF-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[KF-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("KF-TEST-1000", "message 1")
	err2 := NewDomainError("KF-TEST-1000", "message 2")
	err3 := NewDomainError("KF-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("KF-TEST-1000", "wrapper").WithCause(cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}

	errNoCause := NewDomainError("KF-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("KF-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code {
		t.Error("WithDetails should preserve the code")
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrKeyAlreadyUsed.WithDetails("key kfky-x")

	if !IsDomainError(err, "KF-KEY-4090") {
		t.Error("IsDomainError should match the code through WithDetails")
	}
	if IsDomainError(err, "KF-KEY-4040") {
		t.Error("IsDomainError should not match a different code")
	}
	if IsDomainError(fmt.Errorf("plain"), "KF-KEY-4090") {
		t.Error("IsDomainError should not match a non-domain error")
	}
}

func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(ErrInsufficientCredit); code != "KF-CRED-4020" {
		t.Errorf("GetErrorCode() = %q, want KF-CRED-4020", code)
	}
	if code := GetErrorCode(fmt.Errorf("plain")); code != "" {
		t.Errorf("GetErrorCode() = %q, want empty for non-domain error", code)
	}
}
