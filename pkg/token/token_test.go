package token

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateIsURLSafe(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token contains non-URL-safe characters: %q", tok)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not RawURL base64: %v", err)
	}
	if len(raw) != DefaultLength {
		t.Errorf("decoded length = %d, want %d", len(raw), DefaultLength)
	}
}

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[tok] = true
	}
}

func TestGenerateWithLength(t *testing.T) {
	for _, n := range []int{1, 16, 64} {
		tok, err := GenerateWithLength(n)
		if err != nil {
			t.Fatalf("GenerateWithLength(%d) error = %v", n, err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(raw) != n {
			t.Errorf("decoded length = %d, want %d", len(raw), n)
		}
	}
}

func TestGenerateBytes(t *testing.T) {
	a, err := GenerateBytes(32)
	if err != nil {
		t.Fatalf("GenerateBytes() error = %v", err)
	}
	b, err := GenerateBytes(32)
	if err != nil {
		t.Fatalf("GenerateBytes() error = %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("lengths = %d, %d, want 32", len(a), len(b))
	}
	if string(a) == string(b) {
		t.Error("two GenerateBytes calls returned identical output")
	}
}

func TestHashIsStable(t *testing.T) {
	h1 := Hash("conn-token")
	h2 := Hash("conn-token")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %q vs %q", h1, h2)
	}
	if _, err := hex.DecodeString(h1); err != nil {
		t.Errorf("hash is not hex: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestVerify(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	h := Hash(tok)

	if !Verify(tok, h) {
		t.Error("Verify() rejected the matching token")
	}
	if Verify("wrong", h) {
		t.Error("Verify() accepted a non-matching token")
	}
	if Verify(tok, "not-a-hash") {
		t.Error("Verify() accepted a malformed hash")
	}
}
