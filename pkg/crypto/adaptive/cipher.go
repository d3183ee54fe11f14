package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the AEAD algorithm behind a Cipher.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher is an authenticated cipher with a self-describing type, so a
// file encrypted on one machine can name the algorithm for another.
type Cipher interface {
	Type() CipherType
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// New returns a Cipher for key using the algorithm that is fastest on
// this machine: AES-GCM where the CPU has AES instructions, otherwise
// ChaCha20-Poly1305.
func New(key []byte) (Cipher, error) {
	if preferAES() {
		return NewWithType(key, CipherAESGCM)
	}
	return NewWithType(key, CipherChaCha20)
}

// NewWithType returns a Cipher for key using a specific algorithm.
// AES-GCM accepts 16, 24 or 32 byte keys; ChaCha20-Poly1305 requires
// 32 bytes.
func NewWithType(key []byte, t CipherType) (Cipher, error) {
	aead, err := buildAEAD(key, t)
	if err != nil {
		return nil, err
	}
	return &sealedCipher{kind: t, aead: aead}, nil
}

func buildAEAD(key []byte, t CipherType) (cipher.AEAD, error) {
	switch t {
	case CipherAESGCM:
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, errors.New("invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case CipherChaCha20:
		if len(key) != chacha20poly1305.KeySize {
			return nil, errors.New("invalid key size for ChaCha20-Poly1305: must be 32 bytes")
		}
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher type: %s", t)
	}
}

// preferAES reports whether AES-GCM will run on dedicated CPU
// instructions here. Go's crypto/aes uses AES-NI on amd64 and the ARM
// crypto extensions on arm64; elsewhere ChaCha20 wins.
func preferAES() bool {
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

type sealedCipher struct {
	kind CipherType
	aead cipher.AEAD
}

func (c *sealedCipher) Type() CipherType { return c.kind }
func (c *sealedCipher) NonceSize() int   { return c.aead.NonceSize() }
func (c *sealedCipher) Overhead() int    { return c.aead.Overhead() }

// Encrypt seals plaintext with a fresh random nonce, which is
// prepended to the returned ciphertext.
func (c *sealedCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens ciphertext produced by Encrypt, reading the nonce from
// its leading bytes.
func (c *sealedCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], additionalData)
}
