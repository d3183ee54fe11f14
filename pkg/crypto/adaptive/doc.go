// Package adaptive provides authenticated encryption with the AEAD
// algorithm chosen per machine. AES-256-GCM is used where the CPU has
// AES instructions and ChaCha20-Poly1305 everywhere else, with the
// chosen algorithm recorded so ciphertext moves between machines.
// Keyforge encrypts storage backups through this package.
package adaptive
