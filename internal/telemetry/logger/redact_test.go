package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func newBufLogger(t *testing.T, buf *bytes.Buffer) Logger {
	t.Helper()
	l, err := New(Config{Level: "info", Format: "json", Output: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestRedactSensitive_JWTValue(t *testing.T) {
	var buf bytes.Buffer
	l := newBufLogger(t, &buf)

	// A JWT-shaped value is masked even under a benign key name
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.payload.signature"
	l.Info("token received", "value", token)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	val, _ := logEntry["value"].(string)
	if val == token {
		t.Error("JWT value should not be logged verbatim")
	}
	if len(val) < 3 || val[:3] != "eyJ" {
		t.Errorf("masked value should keep its prefix, got %q", val)
	}
}

func TestRedactSensitive_PasswordHashValue(t *testing.T) {
	var buf bytes.Buffer
	l := newBufLogger(t, &buf)

	hash := "$argon2id$v=19$m=16384,t=2,p=2$c2FsdHNhbHQ$aGFzaGhhc2hoYXNo"
	l.Info("stored", "value", hash)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	val, _ := logEntry["value"].(string)
	if val == hash {
		t.Error("password hash should not be logged verbatim")
	}
}

func TestRedactSensitive_KeyName(t *testing.T) {
	var buf bytes.Buffer
	l := newBufLogger(t, &buf)

	l.Info("login attempt", "password", "Sup3r$ecret", "username", "tester1")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if logEntry["password"] != redactedValue {
		t.Errorf("password = %v, want %q", logEntry["password"], redactedValue)
	}
	if logEntry["username"] != "tester1" {
		t.Errorf("username = %v, should not be redacted", logEntry["username"])
	}
}

func TestRedactSensitive_RecordIDsPassThrough(t *testing.T) {
	var buf bytes.Buffer
	l := newBufLogger(t, &buf)

	// Record IDs are not secrets and must survive for debugging
	l.Info("key issued",
		"key_id", "kfky-01hqv1234567890abcdefghijk",
		"user_id", "kfus-01hqv1234567890abcdefghijk")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if logEntry["key_id"] != "kfky-01hqv1234567890abcdefghijk" {
		t.Errorf("key_id = %v, should not be redacted", logEntry["key_id"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"password", true},
		{"user_password", true},
		{"root_secret", true},
		{"connection_token", true},
		{"redeemable_form", true},
		{"hwid_fingerprint", true},
		{"username", false},
		{"key_id", false},
		{"product_id", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.expected {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestIsSensitiveValue(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"eyJhbGciOiJIUzI1NiJ9.x.y", true},
		{"$argon2id$v=19$m=16384,t=2,p=2$a$b", true},
		{"kfus-01hqv1234567890abcdefghijk", false},
		{"plain text", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveValue(tt.value); got != tt.expected {
			t.Errorf("IsSensitiveValue(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestRedactString(t *testing.T) {
	// Short values collapse to prefix + ***
	if got := RedactString("eyJab"); got != "eyJ***" {
		t.Errorf("RedactString(short jwt) = %q, want eyJ***", got)
	}

	// Long values keep 3 head and 3 tail characters of the body
	long := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"
	if got := RedactString(long); got != "eyJhbG...CJ9" {
		t.Errorf("RedactString(%q) = %q, want %q", long, got, "eyJhbG...CJ9")
	}

	// Non-sensitive values pass through
	if got := RedactString("kfpd-01hqv1234567890abcdefghijk"); got != "kfpd-01hqv1234567890abcdefghijk" {
		t.Errorf("RedactString(plain) = %q, want unchanged", got)
	}
}
