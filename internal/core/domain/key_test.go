package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const (
	testProductID = "kfpd-01hqv1234567890abcdefghijk"
	testCreatorID = "kfus-01hqv1234567890abcdefghijk"
)

func TestNewKey(t *testing.T) {
	key, err := NewKey(testProductID, testCreatorID, testCreatorID, 0)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	if !strings.HasPrefix(key.ID, KeyIDPrefix) {
		t.Errorf("ID should have prefix %q, got %q", KeyIDPrefix, key.ID)
	}
	if len(key.ID) != 31 {
		t.Errorf("ID length = %d, want 31", len(key.ID))
	}

	if _, err := uuid.Parse(key.UUID); err != nil {
		t.Errorf("UUID should parse, got %q: %v", key.UUID, err)
	}

	if key.Used || key.Expired || key.HWID.Locked {
		t.Error("new key should be unused, unexpired and unlocked")
	}

	wantExpiry := key.CreatedAt + DefaultKeyTTL.Milliseconds()
	if key.ExpiresAt != wantExpiry {
		t.Errorf("ExpiresAt = %d, want %d (default TTL)", key.ExpiresAt, wantExpiry)
	}

	if key.Version != 1 {
		t.Errorf("Version = %d, want 1", key.Version)
	}
}

func TestNewKey_CustomTTL(t *testing.T) {
	key, err := NewKey(testProductID, testCreatorID, testCreatorID, time.Hour)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	want := key.CreatedAt + time.Hour.Milliseconds()
	if key.ExpiresAt != want {
		t.Errorf("ExpiresAt = %d, want %d", key.ExpiresAt, want)
	}
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Key)
		wantErr bool
	}{
		{"valid key", func(k *Key) {}, false},
		{"empty id", func(k *Key) { k.ID = "" }, true},
		{"bad uuid", func(k *Key) { k.UUID = "not-a-uuid" }, true},
		{"bad product id", func(k *Key) { k.ProductID = "prod-1" }, true},
		{"bad creator id", func(k *Key) { k.CreatorID = "" }, true},
		{"bad beneficiary id", func(k *Key) { k.BeneficiaryID = "" }, true},
		{"expiry before creation", func(k *Key) { k.ExpiresAt = k.CreatedAt }, true},
		{"locked without fingerprint", func(k *Key) { k.HWID = HWID{Locked: true} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewKey(testProductID, testCreatorID, testCreatorID, 0)
			if err != nil {
				t.Fatalf("NewKey() error = %v", err)
			}
			tt.setup(key)
			err = key.Validate()

			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey_Redeemable(t *testing.T) {
	key, _ := NewKey(testProductID, testCreatorID, testCreatorID, time.Hour)
	now := time.UnixMilli(key.CreatedAt)

	if !key.Redeemable(now) {
		t.Error("fresh key should be redeemable")
	}

	used := key.Clone()
	used.Used = true
	if used.Redeemable(now) {
		t.Error("used key should not be redeemable")
	}

	flagged := key.Clone()
	flagged.Expired = true
	if flagged.Redeemable(now) {
		t.Error("expired-flagged key should not be redeemable")
	}

	// Deadline passed but flag not yet set by the sweeper
	if key.Redeemable(now.Add(2 * time.Hour)) {
		t.Error("key past its deadline should not be redeemable")
	}
	if !key.IsExpiredAt(now.Add(2 * time.Hour)) {
		t.Error("IsExpiredAt should report a passed deadline")
	}
}

func TestKey_Activate(t *testing.T) {
	key, _ := NewKey(testProductID, testCreatorID, testCreatorID, 0)

	key.Activate("fp-machine-01")

	if !key.Used {
		t.Error("Activate should mark the key used")
	}
	if !key.HWID.Locked || key.HWID.Fingerprint != "fp-machine-01" {
		t.Errorf("HWID = %+v, want locked to fp-machine-01", key.HWID)
	}
}

func TestNewKeyToken(t *testing.T) {
	keyID := "kfky-01hqv1234567890abcdefghijk"
	token, err := NewKeyToken("header.payload.sig", keyID, testProductID, testCreatorID)
	if err != nil {
		t.Fatalf("NewKeyToken() error = %v", err)
	}

	if !strings.HasPrefix(token.ID, KeyTokenIDPrefix) {
		t.Errorf("ID should have prefix %q, got %q", KeyTokenIDPrefix, token.ID)
	}
	if token.KeyID != keyID || token.ProductID != testProductID || token.CreatorID != testCreatorID {
		t.Error("KeyToken should anchor key, product and creator")
	}
	if err := token.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestKeyToken_Validate(t *testing.T) {
	token, _ := NewKeyToken("header.payload.sig", "kfky-01hqv1234567890abcdefghijk", testProductID, testCreatorID)

	token.Token = ""
	if err := token.Validate(); err == nil {
		t.Error("Validate() should reject an empty token string")
	}
}
