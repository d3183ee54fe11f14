// Package token provides random token generation and hashing utilities.
//
// Tokens are Base64 RawURL encoded CSPRNG output, suitable for request
// IDs, capability secrets and one-time values. Hashes are hex-encoded
// SHA-256 digests compared in constant time, so a stored hash can stand
// in for a secret that is never persisted itself.
package token
